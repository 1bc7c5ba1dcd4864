// Package shipping turns cart contents and a Greek destination postal code
// into a per-producer shipping cost breakdown.
package shipping

import (
	"regexp"
	"strings"
)

// Zone is a Greek postal-code region with its rate multiplier over the base
// courier charge and its delivery estimate.
type Zone struct {
	Name       string
	Multiplier float64
	EtaDays    int
	prefixes   []string
}

const (
	baseRateCents  = 350
	defaultCarrier = "ΕΛΤΑ Courier"
)

// Zones from the production rate card, keyed on the first two digits of the
// postal code. First match wins; unmatched codes fall back to the major-city
// rate.
var zones = []Zone{
	{
		Name:       "Αθήνα & Περιφέρεια",
		Multiplier: 1.0,
		EtaDays:    2,
		prefixes:   []string{"10", "11", "12", "13", "14", "15", "16", "17", "18", "19"},
	},
	{
		Name:       "Θεσσαλονίκη & Περιφέρεια",
		Multiplier: 1.1,
		EtaDays:    2,
		prefixes:   []string{"54", "55", "56", "57", "58", "59"},
	},
	{
		Name:       "Μεγάλες Πόλεις",
		Multiplier: 1.2,
		EtaDays:    3,
		prefixes: []string{
			"20", "21", "22", "23", "24", "25", "26", "27", "28", "29",
			"30", "31", "32", "33", "34", "35",
		},
	},
	{
		Name:       "Απομακρυσμένες Περιοχές",
		Multiplier: 1.3,
		EtaDays:    3,
		prefixes: []string{
			"40", "41", "42", "43", "44", "45", "46", "47", "48", "49",
			"60", "61", "62", "63", "64", "65", "66", "67", "68", "69",
			"70", "71", "72", "73", "74", "75",
		},
	},
	{
		Name:       "Νησιά",
		Multiplier: 1.5,
		EtaDays:    4,
		prefixes: []string{
			"80", "81", "82", "83", "84", "85", "86", "87", "88", "89",
			"90", "91", "92", "93", "94", "95",
		},
	},
}

var fallbackZone = Zone{Name: "Λοιπές Περιοχές", Multiplier: 1.2, EtaDays: 3}

var postalCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

// ValidPostalCode reports whether code is a well-formed Greek postal code
// (exactly five digits, spaces ignored).
func ValidPostalCode(code string) bool {
	return postalCodePattern.MatchString(cleanPostalCode(code))
}

func cleanPostalCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), " ", "")
}

// ZoneFor resolves the rate zone for a postal code. The code must already be
// validated; unknown prefixes map to the fallback zone.
func ZoneFor(postalCode string) Zone {
	prefix := cleanPostalCode(postalCode)
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	for _, z := range zones {
		for _, p := range z.prefixes {
			if prefix == p {
				return z
			}
		}
	}
	return fallbackZone
}

// RateCents is the flat courier charge for the zone.
func (z Zone) RateCents() int64 {
	return int64(float64(baseRateCents)*z.Multiplier + 0.5)
}
