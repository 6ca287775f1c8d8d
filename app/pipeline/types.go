package pipeline

import (
	"context"
	"errors"
)

// CountryUnknown is the sentinel returned when a seller's country cannot
// be resolved (lookup failure, rate limit). It is always treated as
// allowed.
const CountryUnknown = "XX"

// ErrFatalFetch marks a fetch failure that will not heal on its own
// (unauthorized, malformed query). The owning search is disabled until
// reconfigured; transient errors are simply retried on the next tick.
var ErrFatalFetch = errors.New("fatal fetch error")

// RawItem is a candidate listing as returned by the Fetcher, before any
// dedupe or filter decision.
type RawItem struct {
	ID        int64
	Title     string
	Brand     string
	Price     string
	Currency  string
	PhotoURL  string
	URL       string
	OwnerID   int64
	Timestamp int64 // listing creation time, unix seconds
}

// Batch is one fetch result for one saved search, newest first.
type Batch struct {
	SearchID int64
	Items    []RawItem
}

// Notification is the event emitted for each new qualifying item.
type Notification struct {
	Title    string
	Price    string
	Currency string
	Brand    string
	PhotoURL string
	URL      string
}

// Fetcher returns current candidate listings for a normalized query,
// newest first, at most limit items. Implementations wrap unauthorized or
// malformed-query responses with ErrFatalFetch; any other error is
// transient.
type Fetcher interface {
	Search(ctx context.Context, query string, limit int) ([]RawItem, error)
}

// CountryResolver resolves a listing owner's 2-letter country code. It
// never fails: rate limits and lookup errors yield CountryUnknown.
type CountryResolver interface {
	Resolve(ctx context.Context, ownerID int64) string
}

// Sink is a registered notification delivery channel. Enqueue must not
// block; it reports whether the event was accepted.
type Sink interface {
	Name() string
	Enqueue(n Notification) bool
}
