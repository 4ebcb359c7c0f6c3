package types

import "strings"

// Address is the postal address shape stored as jsonb on labels and
// transactions. City is the only field carriers require for quoting.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// IsZero reports whether no address field is populated.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Oneline renders the address as a single comma-joined string for labels.
func (a Address) Oneline() string {
	parts := make([]string, 0, 5)
	for _, part := range []string{a.Line1, a.Line2, a.City, a.PostalCode, a.Country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
