package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is an offset window over a list.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultParams returns the first page at DefaultLimit.
func DefaultParams() Params {
	return Params{Limit: DefaultLimit}
}

// FromRequest reads limit and offset from the query string. page and
// per_page are accepted as an alternative and converted to an offset.
// Out-of-range values fall back to defaults; limit is capped at MaxLimit.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()

	if v, ok := positive(q.Get("per_page")); ok {
		p.Limit = v
	}
	if v, ok := positive(q.Get("limit")); ok {
		p.Limit = v
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if page, ok := positive(q.Get("page")); ok {
		p.Offset = (page - 1) * p.Limit
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		p.Offset = v
	}
	return p
}

// Page is the 1-based page number the window starts on.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Window returns the [start, end) bounds of p clamped to a list of n items.
func (p Params) Window(n int) (int, int) {
	start := min(max(p.Offset, 0), n)
	end := min(start+p.Limit, n)
	return start, end
}

func positive(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
