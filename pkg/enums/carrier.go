package enums

import (
	"fmt"
	"strings"
)

// Carrier identifies a supported shipping carrier. The set is closed: adding
// a carrier means adding a constant here plus an adapter implementation.
type Carrier string

const (
	CarrierAmana    Carrier = "amana"
	CarrierCTM      Carrier = "ctm"
	CarrierCathedis Carrier = "cathedis"
	// CarrierLocal is the in-city courier fallback used when no carrier is
	// specified or the requested one is unknown.
	CarrierLocal Carrier = "local"
)

var validCarriers = []Carrier{
	CarrierAmana,
	CarrierCTM,
	CarrierCathedis,
	CarrierLocal,
}

// String implements fmt.Stringer.
func (c Carrier) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Carrier.
func (c Carrier) IsValid() bool {
	for _, candidate := range validCarriers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCarrier converts raw input into a Carrier.
func ParseCarrier(value string) (Carrier, error) {
	normalized := Carrier(strings.ToLower(strings.TrimSpace(value)))
	for _, candidate := range validCarriers {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid carrier %q", value)
}

// CarrierOrDefault parses the value, falling back to the local courier for
// unknown or empty input.
func CarrierOrDefault(value string) Carrier {
	carrier, err := ParseCarrier(value)
	if err != nil {
		return CarrierLocal
	}
	return carrier
}
