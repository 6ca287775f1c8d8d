package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

var _ SettingRepository = (*SettingRepo)(nil)

// SettingRepo handles the flat key/value runtime parameters. Values are
// read fresh on every cycle so reconfiguration takes effect without a
// restart.
type SettingRepo struct {
	db *DB
}

func NewSettingRepository(db *DB) *SettingRepo {
	return &SettingRepo{db: db}
}

func (r *SettingRepo) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return value, nil
}

// GetInt reads an integer setting, falling back to the given default when
// the key is missing or the stored value is malformed or non-positive.
func (r *SettingRepo) GetInt(key string, fallback int) int {
	value, err := r.Get(key)
	if err != nil {
		slog.Warn("Setting unavailable, using fallback", "key", key, "fallback", fallback, "error", err)
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("Invalid setting value, using fallback", "key", key, "value", value, "fallback", fallback)
		return fallback
	}
	return n
}

func (r *SettingRepo) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}
	return nil
}

func (r *SettingRepo) GetAll() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setting rows: %w", err)
	}

	return settings, nil
}
