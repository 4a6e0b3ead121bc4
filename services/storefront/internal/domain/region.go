package domain

// Region binds a currency to a set of countries.
type Region struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrencyCode string    `json:"currency_code"`
	Countries    []Country `json:"countries,omitempty"`
}

// Country is a country served by a region.
type Country struct {
	ISO2 string `json:"iso_2"`
	Name string `json:"name"`
}

// ResolveRegion picks the preferred region when it is listed, otherwise the
// first one. It returns false when regions is empty.
func ResolveRegion(regions []Region, preferredID string) (*Region, bool) {
	if preferredID != "" {
		for i := range regions {
			if regions[i].ID == preferredID {
				return &regions[i], true
			}
		}
	}
	if len(regions) == 0 {
		return nil, false
	}
	return &regions[0], true
}
