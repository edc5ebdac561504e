package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingsSlot stores its value as one row of the settings table.
type SettingsSlot struct {
	db  *sql.DB
	key string
}

// NewSettingsSlot returns a slot backed by the settings row named key.
func NewSettingsSlot(db *sql.DB, key string) *SettingsSlot {
	return &SettingsSlot{db: db, key: key}
}

// Key returns the settings key backing this slot.
func (s *SettingsSlot) Key() string {
	return s.key
}

// Load returns the stored value or ErrEmpty if the row does not exist.
func (s *SettingsSlot) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to load %s: %w", s.key, err)
	}
	return []byte(value), nil
}

// Save overwrites the stored value.
func (s *SettingsSlot) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		s.key, string(data))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", s.key, err)
	}
	return nil
}
