package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// DayConvention selects how a date maps to its day-of-year number.
type DayConvention int

const (
	// DayOneBased numbers January 1st as day 1. Stored picks made by the
	// mobile app use this numbering.
	DayOneBased DayConvention = iota

	// DayZeroBased numbers January 1st as day 0.
	DayZeroBased
)

// defaultQuotes is the built-in catalog. Order defines the day-to-quote mapping.
var defaultQuotes = []string{
	"The only bad workout is the one that didn't happen.",
	"Your body can stand almost anything. It's your mind you have to convince.",
	"Success starts with self-discipline.",
	"The pain you feel today will be the strength you feel tomorrow.",
	"Don't wish for it, work for it.",
	"Strive for progress, not perfection.",
	"Your only limit is you.",
	"Push yourself because no one else is going to do it for you.",
	"Great things never come from comfort zones.",
	"Dream it. Wish it. Do it.",
	"Success doesn't just find you. You have to go out and get it.",
	"The harder you work for something, the greater you'll feel when you achieve it.",
	"Dream bigger. Do bigger.",
	"Don't stop when you're tired. Stop when you're done.",
	"Wake up with determination. Go to bed with satisfaction.",
	"Do something today that your future self will thank you for.",
	"Little progress each day adds up to big results.",
	"Don't wait for opportunity. Create it.",
	"Sometimes we're tested not to show our weaknesses, but to discover our strengths.",
	"The key to success is to focus on goals, not obstacles.",
	"Believe in yourself and all that you are.",
	"You are stronger than you think.",
	"Make yourself proud.",
	"The difference between try and triumph is a little umph.",
	"Fitness is not about being better than someone else. It's about being better than you used to be.",
	"Take care of your body. It's the only place you have to live.",
	"The only way to define your limits is by going beyond them.",
	"Sweat is fat crying.",
	"You don't have to be extreme, just consistent.",
	"A one hour workout is 4% of your day. No excuses.",
}

// Catalog is an ordered, immutable list of motivational quotes.
// A Catalog is safe to share between goroutines.
type Catalog struct {
	quotes     []string
	convention DayConvention
	intN       func(n int) int
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithDayConvention sets the day-of-year numbering used by PickForDate.
func WithDayConvention(conv DayConvention) CatalogOption {
	return func(c *Catalog) {
		c.convention = conv
	}
}

// WithRandomSource replaces the uniform index generator used by PickRandom.
// intN must return a value in [0, n).
func WithRandomSource(intN func(n int) int) CatalogOption {
	return func(c *Catalog) {
		if intN != nil {
			c.intN = intN
		}
	}
}

// NewCatalog builds a catalog from quotes. The slice is copied.
// Returns a validation error if quotes is empty or contains a blank entry.
func NewCatalog(quotes []string, opts ...CatalogOption) (*Catalog, error) {
	if len(quotes) == 0 {
		return nil, NewValidationError("quotes", "catalog must contain at least one quote")
	}

	for i, q := range quotes {
		if strings.TrimSpace(q) == "" {
			return nil, NewValidationErrorWithValue("quotes["+strconv.Itoa(i)+"]", "quote must not be blank", q)
		}
	}

	c := &Catalog{
		quotes: append([]string(nil), quotes...),
		intN:   rand.IntN,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// DefaultCatalog returns the built-in catalog of 30 quotes.
func DefaultCatalog(opts ...CatalogOption) *Catalog {
	c, err := NewCatalog(defaultQuotes, opts...)
	if err != nil {
		panic("domain: built-in catalog is invalid: " + err.Error())
	}

	return c
}

// Len returns the number of quotes.
func (c *Catalog) Len() int {
	return len(c.quotes)
}

// At returns the quote at index i.
func (c *Catalog) At(i int) (string, error) {
	if i < 0 || i >= len(c.quotes) {
		return "", NewNotFoundError("quote", strconv.Itoa(i))
	}

	return c.quotes[i], nil
}

// Quotes returns a copy of the catalog contents in order.
func (c *Catalog) Quotes() []string {
	return append([]string(nil), c.quotes...)
}

// Convention returns the day-of-year numbering in use.
func (c *Catalog) Convention() DayConvention {
	return c.convention
}

// PickRandom returns a uniformly random quote.
func (c *Catalog) PickRandom() string {
	return c.quotes[c.intN(len(c.quotes))]
}

// PickForDate returns the quote for t's calendar day.
// Dates on the same day of the same year always get the same quote.
func (c *Catalog) PickForDate(t time.Time) string {
	return c.quotes[c.IndexForDate(t)]
}

// IndexForDate returns the catalog index PickForDate would use for t.
func (c *Catalog) IndexForDate(t time.Time) int {
	return DayOfYear(t, c.convention) % len(c.quotes)
}

// DayOfYear returns t's offset within its calendar year, evaluated in
// t's location.
func DayOfYear(t time.Time, conv DayConvention) int {
	day := t.YearDay()
	if conv == DayZeroBased {
		day--
	}

	return day
}
