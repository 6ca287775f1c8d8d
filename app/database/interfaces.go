package database

import "errors"

// ErrDuplicateSearch is returned when an equivalent normalized query
// already exists as a live saved search.
var ErrDuplicateSearch = errors.New("search with equivalent query already exists")

// NewItem carries the fields persisted when the decision stage records a
// candidate. RecordItem writes the item row and advances the owning
// search's watermark in one transaction.
type NewItem struct {
	ID        int64
	SearchID  int64
	Title     string
	Price     string
	Currency  string
	Brand     string
	URL       string
	PhotoURL  string
	Timestamp int64
}

type SearchRepository interface {
	GetSearch(id int64) (*Search, error)
	GetSearches() ([]Search, error)
	GetEnabledSearches() ([]Search, error)
	GetSearchCount() (int, error)

	AddSearch(query, name string) (int64, error)
	UpdateSearchName(id int64, name string) error
	SetSearchEnabled(id int64, enabled bool) error
	DeleteSearch(id int64) error
	DeleteAllSearches() error

	GetWatermark(id int64) (*int64, error)
	AdvanceWatermark(id int64, timestamp int64) error
}

type ItemRepository interface {
	HasItem(id int64) (bool, error)
	RecordItem(item NewItem) error

	GetRecentItems(searchID int64, limit int) ([]Item, error)
	GetItemCount() (int, error)
	GetLastFoundItem() (*Item, error)
	GetItemsPerDay() (float64, error)

	PruneItems(searchID int64, keep int) (int64, error)
}

type SettingRepository interface {
	Get(key string) (string, error)
	GetInt(key string, fallback int) int
	Set(key, value string) error
	GetAll() (map[string]string, error)
}

type AllowlistRepository interface {
	GetAllowlist() ([]string, error)
	AddCountry(code string) error
	RemoveCountry(code string) error
	ClearAllowlist() error
}
