// Package domain contains core business entities and rules.
package domain

import "time"

// DateKeyLayout formats a calendar day the way the persisted date stamp
// expects it, e.g. "Tue Mar 05 2024".
const DateKeyLayout = "Mon Jan 02 2006"

// QuoteSource tells where a daily quote came from.
type QuoteSource string

const (
	// QuoteSourceCache means the stored record matched today and was reused.
	QuoteSourceCache QuoteSource = "cache"

	// QuoteSourceComputed means the quote was picked and persisted for today.
	QuoteSourceComputed QuoteSource = "computed"

	// QuoteSourceFallback means storage failed and the quote was picked
	// without being persisted.
	QuoteSourceFallback QuoteSource = "fallback"
)

// DailyQuote is the quote selected for one calendar day.
type DailyQuote struct {
	// Text is the quote itself.
	Text string

	// DateKey identifies the calendar day, see DateKeyLayout.
	DateKey string

	// Source reports whether the value was served from the cache.
	Source QuoteSource
}

// DailyQuoteRecord is the persisted single-slot cache entry.
// Both fields are plain strings; an empty field means "absent".
type DailyQuoteRecord struct {
	DateKey string
	Quote   string
}

// IsFor reports whether the record is a usable cache entry for dateKey.
func (r DailyQuoteRecord) IsFor(dateKey string) bool {
	return r.DateKey == dateKey && r.Quote != ""
}

// DateKey returns the calendar-day identifier for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}
