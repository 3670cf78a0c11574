// Package normalize maps the loosely formatted CRM field values (state
// designations, entity types, legal names, dates, phone numbers) onto the
// rigid values the wizard's controls accept.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownState is returned for a state designation outside the table.
// The caller's step policy decides whether that aborts the run; the
// normalizer never substitutes a guess.
var ErrUnknownState = errors.New("unknown state designation")

// stateCodes maps upper-cased full state names to their two-letter codes.
// Bare codes and "NAME (XX)" forms are handled by State before lookup.
var stateCodes = map[string]string{
	"ALABAMA":              "AL",
	"ALASKA":               "AK",
	"ARIZONA":              "AZ",
	"ARKANSAS":             "AR",
	"CALIFORNIA":           "CA",
	"COLORADO":             "CO",
	"CONNECTICUT":          "CT",
	"DELAWARE":             "DE",
	"DISTRICT OF COLUMBIA": "DC",
	"FLORIDA":              "FL",
	"GEORGIA":              "GA",
	"HAWAII":               "HI",
	"IDAHO":                "ID",
	"ILLINOIS":             "IL",
	"INDIANA":              "IN",
	"IOWA":                 "IA",
	"KANSAS":               "KS",
	"KENTUCKY":             "KY",
	"LOUISIANA":            "LA",
	"MAINE":                "ME",
	"MARYLAND":             "MD",
	"MASSACHUSETTS":        "MA",
	"MICHIGAN":             "MI",
	"MINNESOTA":            "MN",
	"MISSISSIPPI":          "MS",
	"MISSOURI":             "MO",
	"MONTANA":              "MT",
	"NEBRASKA":             "NE",
	"NEVADA":               "NV",
	"NEW HAMPSHIRE":        "NH",
	"NEW JERSEY":           "NJ",
	"NEW MEXICO":           "NM",
	"NEW YORK":             "NY",
	"NORTH CAROLINA":       "NC",
	"NORTH DAKOTA":         "ND",
	"OHIO":                 "OH",
	"OKLAHOMA":             "OK",
	"OREGON":               "OR",
	"PENNSYLVANIA":         "PA",
	"RHODE ISLAND":         "RI",
	"SOUTH CAROLINA":       "SC",
	"SOUTH DAKOTA":         "SD",
	"TENNESSEE":            "TN",
	"TEXAS":                "TX",
	"UTAH":                 "UT",
	"VERMONT":              "VT",
	"VIRGINIA":             "VA",
	"WASHINGTON":           "WA",
	"WEST VIRGINIA":        "WV",
	"WISCONSIN":            "WI",
	"WYOMING":              "WY",
}

// validCodes is the reverse index of two-letter codes.
var validCodes = func() map[string]bool {
	codes := make(map[string]bool, len(stateCodes))
	for _, code := range stateCodes {
		codes[code] = true
	}
	return codes
}()

// parenSuffix strips a trailing parenthetical, e.g. "TEXAS (TX)" -> "TEXAS".
var parenSuffix = regexp.MustCompile(`\s*\([^)]+\)`)

// State resolves any CRM-sourced state designation to its canonical
// two-letter code. Accepted inputs: a bare code ("TX"), a full name
// ("Texas"), or the name-with-abbreviation form ("Texas (TX)"), in any
// case and with surrounding whitespace.
func State(input string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrUnknownState)
	}

	if validCodes[s] {
		return s, nil
	}

	if code, ok := stateCodes[s]; ok {
		return code, nil
	}
	stripped := strings.TrimSpace(parenSuffix.ReplaceAllString(s, ""))
	if code, ok := stateCodes[stripped]; ok {
		return code, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownState, input)
}
