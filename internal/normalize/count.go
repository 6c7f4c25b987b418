package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseCount reads abbreviated counters such as "1B+", "100M+", "9.7K" or
// "6,904,987". A trailing "+" is dropped, thousands separators are ignored
// and K/M/B scale the value by 10^3, 10^6 and 10^9. Fractions are only
// accepted together with a suffix and are truncated after scaling.
func ParseCount(s string) (int64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "+")
	s = strings.Map(func(r rune) rune {
		if r == ',' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	exp := 0
	switch s[len(s)-1] {
	case 'k', 'K':
		exp = 3
	case 'm', 'M':
		exp = 6
	case 'b', 'B':
		exp = 9
	}
	if exp > 0 {
		s = s[:len(s)-1]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && (exp == 0 || frac == "") {
		return 0, false
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, false
	}

	if len(frac) > exp {
		frac = frac[:exp]
	}
	v, err := strconv.ParseInt(whole+frac+strings.Repeat("0", exp-len(frac)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CountPtr is ParseCount returning nil for unparseable input.
func CountPtr(s string) *int64 {
	v, ok := ParseCount(s)
	if !ok {
		return nil
	}
	return &v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
