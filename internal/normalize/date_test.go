package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpdated(t *testing.T) {
	now := time.Date(2024, time.June, 30, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		phrase string
		want   string
	}{
		{"Updated a day ago", "2024-06-29"},
		{"Updated 3 days ago", "2024-06-27"},
		{"Updated 2 weeks ago", "2024-06-16"},
		{"Updated 5 months ago", "2024-01-30"},
		{"Updated 1 year ago", "2023-06-30"},
		{"Updated a week ago", "2024-06-23"},
		{"Updated an hour ago or Updated 4 months ago", "2024-02-29"},
		{"  Updated 3 months ago  ", "2024-03-30"},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := UpdatedDate(tt.phrase, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUpdatedRejectsOtherPhrases(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	for _, phrase := range []string{
		"Last pushed yesterday",
		"Updated yesterday",
		"Updated 5 hours ago",
		"",
		"updated 3 days ago",
	} {
		t.Run(phrase, func(t *testing.T) {
			_, err := ParseUpdated(phrase, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, phrase, fe.Input)
		})
	}
}

func TestSubtractMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		months int
		want   string
	}{
		{"march 31 minus one month", time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC), 1, "2023-02-28"},
		{"leap year", time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), 1, "2024-02-29"},
		{"feb 29 minus a year", time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), 12, "2023-02-28"},
		{"crosses year boundary", time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 3, "2023-10-15"},
		{"may 31 minus three", time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC), 3, "2024-02-29"},
		{"zero", time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC), 0, "2024-05-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(SubtractMonths(tt.from, tt.months)))
		})
	}
}

func TestParseUpdatedKeepsLocation(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	now := time.Date(2024, time.July, 31, 23, 30, 0, 0, loc)

	got, err := ParseUpdated("Updated a month ago", now)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, "2024-06-30", FormatDate(got))
}
