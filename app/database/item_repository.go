package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ ItemRepository = (*ItemRepo)(nil)

// ItemRepo handles database operations for seen items
type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) HasItem(id int64) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM items WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item existence: %w", err)
	}
	return true, nil
}

// RecordItem persists a seen item and advances the owning search's
// watermark in a single transaction: either both commit or neither does.
func (r *ItemRepo) RecordItem(item NewItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO items (id, search_id, title, price, currency, brand, url, photo_url, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.SearchID, item.Title, item.Price, item.Currency, item.Brand,
		item.URL, item.PhotoURL, item.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE searches
		SET last_item = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (last_item IS NULL OR last_item < ?)
	`, item.Timestamp, item.SearchID, item.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item record: %w", err)
	}
	return nil
}

const itemColumns = `id, search_id, title, price, currency, brand, url, photo_url, timestamp, created_at`

// GetRecentItems returns the newest items, newest first. A searchID of 0
// returns items across all searches.
func (r *ItemRepo) GetRecentItems(searchID int64, limit int) ([]Item, error) {
	var rows *sql.Rows
	var err error

	if searchID > 0 {
		rows, err = r.db.Query(`
			SELECT `+itemColumns+` FROM items
			WHERE search_id = ?
			ORDER BY timestamp DESC
			LIMIT ?
		`, searchID, limit)
	} else {
		rows, err = r.db.Query(`
			SELECT `+itemColumns+` FROM items
			ORDER BY timestamp DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.ID, &item.SearchID, &item.Title, &item.Price, &item.Currency,
			&item.Brand, &item.URL, &item.PhotoURL, &item.Timestamp, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepo) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepo) GetLastFoundItem() (*Item, error) {
	row := r.db.QueryRow(`SELECT ` + itemColumns + ` FROM items ORDER BY timestamp DESC LIMIT 1`)

	var item Item
	err := row.Scan(&item.ID, &item.SearchID, &item.Title, &item.Price, &item.Currency,
		&item.Brand, &item.URL, &item.PhotoURL, &item.Timestamp, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last found item: %w", err)
	}
	return &item, nil
}

// GetItemsPerDay returns the average number of items recorded per day
// between the oldest and newest item timestamps.
func (r *ItemRepo) GetItemsPerDay() (float64, error) {
	var count int
	var minTS, maxTS sql.NullInt64

	err := r.db.QueryRow("SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM items").
		Scan(&count, &minTS, &maxTS)
	if err != nil {
		return 0, fmt.Errorf("failed to get items per day: %w", err)
	}

	if count == 0 || !minTS.Valid || !maxTS.Valid {
		return 0, nil
	}

	minDay := time.Unix(minTS.Int64, 0).UTC().Truncate(24 * time.Hour)
	maxDay := time.Unix(maxTS.Int64, 0).UTC().Truncate(24 * time.Hour)
	days := int(maxDay.Sub(minDay).Hours()/24) + 1
	if days < 1 {
		days = 1
	}

	return float64(count) / float64(days), nil
}

// PruneItems enforces bounded retention: only the newest keep items are
// retained for the search, the rest are deleted.
func (r *ItemRepo) PruneItems(searchID int64, keep int) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM items
		WHERE search_id = ?
		  AND id NOT IN (
			SELECT id FROM items
			WHERE search_id = ?
			ORDER BY timestamp DESC
			LIMIT ?
		  )
	`, searchID, searchID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune items: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get pruned row count: %w", err)
	}
	return deleted, nil
}
