package database

import (
	"time"
)

type Search struct {
	ID        int64
	Query     string // Normalized upstream query URL, unique across live searches
	Name      string // Optional display name
	LastItem  *int64 // Watermark: unix timestamp of the newest processed item, nil until the first one
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Item struct {
	ID        int64 // Upstream-assigned listing identifier
	SearchID  int64
	Title     string
	Price     string // Upstream decimal amount kept verbatim as text
	Currency  string
	Brand     string
	URL       string
	PhotoURL  string
	Timestamp int64 // Listing creation time, unix seconds
	CreatedAt time.Time
}
