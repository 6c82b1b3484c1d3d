package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, 30, c.Len())
	assert.Equal(t, DayOneBased, c.Convention())

	first, err := c.At(0)
	require.NoError(t, err)
	assert.Equal(t, "The only bad workout is the one that didn't happen.", first)
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name   string
		quotes []string
		field  string
	}{
		{name: "nil", quotes: nil, field: "quotes"},
		{name: "empty", quotes: []string{}, field: "quotes"},
		{name: "blank entry", quotes: []string{"ok", "   "}, field: "quotes[1]"},
		{name: "empty entry", quotes: []string{""}, field: "quotes[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalog(tt.quotes)

			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, IsValidation(err))

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	quotes := []string{"a", "b"}
	c, err := NewCatalog(quotes)
	require.NoError(t, err)

	quotes[0] = "mutated"

	got, err := c.At(0)
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	out := c.Quotes()
	out[1] = "mutated"

	got, err = c.At(1)
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}

func TestCatalog_At_OutOfRange(t *testing.T) {
	c := DefaultCatalog()

	for _, i := range []int{-1, 30, 1000} {
		_, err := c.At(i)
		assert.True(t, IsNotFound(err), "index %d", i)
	}
}

func TestCatalog_PickForDate_JanuaryFirstIsDayOne(t *testing.T) {
	c := DefaultCatalog()

	for _, year := range []int{1999, 2023, 2024, 2025, 2100} {
		jan1 := time.Date(year, time.January, 1, 9, 30, 0, 0, time.UTC)
		want, err := c.At(1)
		require.NoError(t, err)

		assert.Equal(t, 1, DayOfYear(jan1, DayOneBased))
		assert.Equal(t, want, c.PickForDate(jan1), "year %d", year)
	}
}

func TestCatalog_PickForDate_ZeroBased(t *testing.T) {
	c := DefaultCatalog(WithDayConvention(DayZeroBased))
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	want, err := c.At(0)
	require.NoError(t, err)
	assert.Equal(t, want, c.PickForDate(jan1))
	assert.Equal(t, DayZeroBased, c.Convention())
}

func TestCatalog_PickForDate_SameDaySameQuote(t *testing.T) {
	c := DefaultCatalog()
	loc := time.FixedZone("UTC+5", 5*60*60)

	morning := time.Date(2024, time.June, 12, 0, 0, 1, 0, loc)
	night := time.Date(2024, time.June, 12, 23, 59, 59, 0, loc)

	assert.Equal(t, c.PickForDate(morning), c.PickForDate(night))
	assert.Equal(t, DateKey(morning), DateKey(night))
}

func TestCatalog_PickForDate_EvaluatedInLocation(t *testing.T) {
	c := DefaultCatalog()
	ahead := time.FixedZone("UTC+10", 10*60*60)

	// 20:00 UTC on Jan 1 is already Jan 2 ten hours east.
	utc := time.Date(2024, time.January, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, c.IndexForDate(utc))
	assert.Equal(t, 2, c.IndexForDate(utc.In(ahead)))
}

func TestCatalog_PickForDate_AlwaysInCatalog(t *testing.T) {
	c := DefaultCatalog()
	members := make(map[string]struct{}, c.Len())

	for _, q := range c.Quotes() {
		members[q] = struct{}{}
	}

	// Two full years including a leap year and its last day.
	start := time.Date(2023, time.January, 1, 12, 0, 0, 0, time.UTC)
	for d := 0; d < 731; d++ {
		day := start.AddDate(0, 0, d)
		_, ok := members[c.PickForDate(day)]
		require.True(t, ok, "date %s", day.Format(time.DateOnly))
	}
}

func TestCatalog_IndexForDate_YearEnd(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"non-leap Dec 31", time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), 365 % 30},
		{"leap Dec 31", time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), 366 % 30},
		{"leap Feb 29", time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), 60 % 30},
		{"day 30 wraps to 0", time.Date(2024, time.January, 30, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IndexForDate(tt.date))
		})
	}
}

func TestCatalog_PickRandom_UsesSource(t *testing.T) {
	var gotN int
	c := DefaultCatalog(WithRandomSource(func(n int) int {
		gotN = n
		return n - 1
	}))

	last, err := c.At(c.Len() - 1)
	require.NoError(t, err)

	assert.Equal(t, last, c.PickRandom())
	assert.Equal(t, c.Len(), gotN)
}

func TestCatalog_PickRandom_NilSourceKeepsDefault(t *testing.T) {
	c := DefaultCatalog(WithRandomSource(nil))

	assert.NotPanics(t, func() { _ = c.PickRandom() })
}

func TestCatalog_PickRandom_CoversCatalog(t *testing.T) {
	c, err := NewCatalog([]string{"a", "b", "c", "d"})
	require.NoError(t, err)

	seen := make(map[string]int)
	for range 2000 {
		seen[c.PickRandom()]++
	}

	assert.Len(t, seen, 4)
	for _, q := range c.Quotes() {
		assert.Positive(t, seen[q], "quote %q never picked", q)
	}
}

func TestDateKey(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC), "Tue Mar 05 2024"},
		{time.Date(2025, time.December, 25, 23, 59, 0, 0, time.UTC), "Thu Dec 25 2025"},
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "Thu Jan 01 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DateKey(tt.date))
		})
	}
}

func TestDailyQuoteRecord_IsFor(t *testing.T) {
	today := "Tue Mar 05 2024"

	tests := []struct {
		name   string
		record DailyQuoteRecord
		want   bool
	}{
		{"matching record", DailyQuoteRecord{DateKey: today, Quote: "q"}, true},
		{"yesterday", DailyQuoteRecord{DateKey: "Mon Mar 04 2024", Quote: "q"}, false},
		{"empty quote", DailyQuoteRecord{DateKey: today}, false},
		{"empty record", DailyQuoteRecord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.IsFor(today))
		})
	}
}
