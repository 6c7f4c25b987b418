// Package normalize turns the human-readable text shown by the scraped sites
// into dates and integers.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the layout every normalized date is rendered with.
const DateLayout = "2006-01-02"

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("unrecognized text format")

// FormatError reports text that does not follow the expected grammar.
type FormatError struct {
	Input string
	Want  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%q does not match %s", e.Input, e.Want)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

var updatedPattern = regexp.MustCompile(`Updated (a|\d+) (day|week|month|year)s? ago`)

// ParseUpdated converts phrases such as "Updated 3 days ago" or "Updated a
// month ago" into the calendar date that lies that far before now. Month and
// year steps clamp to the last day of the target month.
func ParseUpdated(phrase string, now time.Time) (time.Time, error) {
	m := updatedPattern.FindStringSubmatch(phrase)
	if m == nil {
		return time.Time{}, &FormatError{Input: phrase, Want: updatedPattern.String()}
	}

	n := 1
	if m[1] != "a" {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, &FormatError{Input: phrase, Want: "a quantity that fits an int"}
		}
		n = v
	}

	switch m[2] {
	case "day":
		return now.AddDate(0, 0, -n), nil
	case "week":
		return now.AddDate(0, 0, -7*n), nil
	case "month":
		return SubtractMonths(now, n), nil
	default:
		return SubtractMonths(now, 12*n), nil
	}
}

// SubtractMonths moves t back n calendar months, keeping the day of month
// unless the target month is shorter, in which case the last day is used.
func SubtractMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()

	total := y*12 + int(m) - 1 - n
	ty, tm := total/12, time.Month(total%12+1)
	if total < 0 && total%12 != 0 {
		ty, tm = total/12-1, time.Month(total%12+13)
	}

	if last := daysIn(ty, tm, t.Location()); d > last {
		d = last
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// FormatDate renders t with DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// UpdatedDate is ParseUpdated followed by FormatDate.
func UpdatedDate(phrase string, now time.Time) (string, error) {
	t, err := ParseUpdated(phrase, now)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}
