package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
)

// errorBody accepts both error shapes seen downstream: the envelope written
// by pkg/httputil ({"error":{"code","message"}}) and the flat shape used by
// the commerce platform ({"message","code","type"}).
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
}

func (b errorBody) codeAndMessage() (string, string) {
	if len(b.Error) > 0 && b.Error[0] == '{' {
		var env struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(b.Error, &env) == nil {
			return env.Code, env.Message
		}
	}
	code, message := b.Code, b.Message
	if code == "" {
		code = b.Type
	}
	if message == "" && len(b.Error) > 0 {
		_ = json.Unmarshal(b.Error, &message)
	}
	return code, message
}

// ParseResponseError reads a non-2xx response and returns a remote AppError
// keeping the status and any provider code. The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}
	return ParseErrorBody(resp.StatusCode, body, serviceName)
}

// ParseErrorBody translates a status and raw body into a remote AppError.
func ParseErrorBody(status int, body []byte, serviceName string) error {
	var parsed errorBody
	code, message := "", ""
	if json.Unmarshal(body, &parsed) == nil {
		code, message = parsed.codeAndMessage()
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return apperrors.Remote(status, code, fmt.Sprintf("%s: %s", serviceName, message))
}

// FromTransportError maps errors returned by a Doer to AppErrors. Upstream
// 5xx answers become remote errors and an open breaker becomes 503.
// Other errors are returned unchanged.
func FromTransportError(err error, serviceName string) error {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return ParseErrorBody(upstream.StatusCode, upstream.Body, serviceName)
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrTooManyProbes):
		appErr := apperrors.ServiceUnavailable(serviceName + " is unavailable")
		appErr.Err = errors.Join(apperrors.ErrServiceUnavail, err)
		return appErr
	}
	return err
}

// IsClientError reports whether status is a 4xx code.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
