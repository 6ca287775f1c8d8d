package database

import (
	"fmt"
)

var _ AllowlistRepository = (*AllowlistRepo)(nil)

// AllowlistRepo stores the seller country allowlist. An empty table means
// no restriction, which is distinct from a populated one.
type AllowlistRepo struct {
	db *DB
}

func NewAllowlistRepository(db *DB) *AllowlistRepo {
	return &AllowlistRepo{db: db}
}

func (r *AllowlistRepo) GetAllowlist() ([]string, error) {
	rows, err := r.db.Query(`SELECT country FROM allowlist ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("failed to get allowlist: %w", err)
	}
	defer rows.Close()

	var countries []string
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan allowlist row: %w", err)
		}
		countries = append(countries, country)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allowlist rows: %w", err)
	}

	return countries, nil
}

func (r *AllowlistRepo) AddCountry(code string) error {
	_, err := r.db.Exec(`
		INSERT INTO allowlist (country) VALUES (?)
		ON CONFLICT (country) DO NOTHING
	`, code)
	if err != nil {
		return fmt.Errorf("failed to add country to allowlist: %w", err)
	}
	return nil
}

func (r *AllowlistRepo) RemoveCountry(code string) error {
	_, err := r.db.Exec(`DELETE FROM allowlist WHERE country = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to remove country from allowlist: %w", err)
	}
	return nil
}

func (r *AllowlistRepo) ClearAllowlist() error {
	_, err := r.db.Exec(`DELETE FROM allowlist`)
	if err != nil {
		return fmt.Errorf("failed to clear allowlist: %w", err)
	}
	return nil
}
