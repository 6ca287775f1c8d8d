package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var _ SearchRepository = (*SearchRepo)(nil)

// SearchRepo handles database operations for saved searches
type SearchRepo struct {
	db *DB
}

func NewSearchRepository(db *DB) *SearchRepo {
	return &SearchRepo{db: db}
}

const searchColumns = `id, query, name, last_item, enabled, created_at, updated_at`

func (r *SearchRepo) scanSearch(row interface{ Scan(...any) error }) (*Search, error) {
	var s Search
	var enabled int
	err := row.Scan(&s.ID, &s.Query, &s.Name, &s.LastItem, &enabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Enabled = enabled != 0
	return &s, nil
}

func (r *SearchRepo) GetSearch(id int64) (*Search, error) {
	row := r.db.QueryRow(`SELECT `+searchColumns+` FROM searches WHERE id = ?`, id)

	s, err := r.scanSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search: %w", err)
	}
	return s, nil
}

func (r *SearchRepo) GetSearches() ([]Search, error) {
	return r.querySearches(`SELECT ` + searchColumns + ` FROM searches ORDER BY id`)
}

func (r *SearchRepo) GetEnabledSearches() ([]Search, error) {
	return r.querySearches(`SELECT ` + searchColumns + ` FROM searches WHERE enabled = 1 ORDER BY id`)
}

func (r *SearchRepo) querySearches(query string) ([]Search, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get searches: %w", err)
	}
	defer rows.Close()

	var searches []Search
	for rows.Next() {
		s, err := r.scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		searches = append(searches, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}

	return searches, nil
}

func (r *SearchRepo) GetSearchCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM searches").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get search count: %w", err)
	}
	return count, nil
}

// AddSearch inserts a new saved search. The normalized query is unique
// across live searches; inserting an equivalent one returns
// ErrDuplicateSearch instead of a second row.
func (r *SearchRepo) AddSearch(query, name string) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO searches (query, name) VALUES (?, ?)`, query, name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateSearch
		}
		return 0, fmt.Errorf("failed to add search: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted search id: %w", err)
	}
	return id, nil
}

func (r *SearchRepo) UpdateSearchName(id int64, name string) error {
	_, err := r.db.Exec(`
		UPDATE searches
		SET name = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update search name: %w", err)
	}
	return nil
}

func (r *SearchRepo) SetSearchEnabled(id int64, enabled bool) error {
	_, err := r.db.Exec(`
		UPDATE searches
		SET enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, boolToInt(enabled), id)
	if err != nil {
		return fmt.Errorf("failed to set search enabled status: %w", err)
	}
	return nil
}

// DeleteSearch removes a saved search; associated items go with it via
// ON DELETE CASCADE.
func (r *SearchRepo) DeleteSearch(id int64) error {
	_, err := r.db.Exec(`DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return nil
}

func (r *SearchRepo) DeleteAllSearches() error {
	_, err := r.db.Exec(`DELETE FROM searches`)
	if err != nil {
		return fmt.Errorf("failed to delete all searches: %w", err)
	}
	return nil
}

func (r *SearchRepo) GetWatermark(id int64) (*int64, error) {
	var watermark *int64
	err := r.db.QueryRow(`SELECT last_item FROM searches WHERE id = ?`, id).Scan(&watermark)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watermark: %w", err)
	}
	return watermark, nil
}

// AdvanceWatermark moves the search's watermark forward. The guard in the
// WHERE clause keeps the advance monotonic even with concurrent writers.
func (r *SearchRepo) AdvanceWatermark(id int64, timestamp int64) error {
	_, err := r.db.Exec(`
		UPDATE searches
		SET last_item = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (last_item IS NULL OR last_item < ?)
	`, timestamp, id, timestamp)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
