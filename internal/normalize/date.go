package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrBadDate is returned when a formation date matches none of the
// accepted layouts.
var ErrBadDate = errors.New("unparseable formation date")

// formationLayouts are tried in order; the first that parses wins.
var formationLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

// FormationMonthYear parses a formation date into the month and four-digit
// year strings the wizard's start-date selectors take, e.g. "2024-06-24"
// yields ("6", "2024").
func FormationMonthYear(input string) (month, year string, err error) {
	for _, layout := range formationLayouts {
		t, perr := time.Parse(layout, input)
		if perr != nil {
			continue
		}
		return strconv.Itoa(int(t.Month())), strconv.Itoa(t.Year()), nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrBadDate, input)
}
