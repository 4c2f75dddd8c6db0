package rates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/panelpro/internal/db"
	"github.com/Simplici0/panelpro/internal/pricing"
)

// Store reads and writes the price list. Every value change is written together
// with its history entry in one transaction.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: func() time.Time { return time.Now().UTC() }}
}

const rateColumns = `id, key, value, unit, category, description, updated_at, updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (Rate, error) {
	var r Rate
	var updatedBy sql.NullString
	if err := row.Scan(&r.ID, &r.Key, &r.Value, &r.Unit, &r.Category, &r.Description, &r.UpdatedAt, &updatedBy); err != nil {
		return Rate{}, err
	}
	r.UpdatedBy = updatedBy.String
	return r, nil
}

func (s *Store) queryRates(ctx context.Context, query string, args ...any) ([]Rate, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Rate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// List returns every rate ordered by category then key.
func (s *Store) List(ctx context.Context) ([]Rate, error) {
	list, err := s.queryRates(ctx, `SELECT `+rateColumns+` FROM rates ORDER BY category, key`)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return list, nil
}

// Grouped returns every rate keyed by category.
func (s *Store) Grouped(ctx context.Context) (map[Category][]Rate, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Group(list), nil
}

// Get returns the rate stored under key.
func (s *Store) Get(ctx context.Context, key string) (Rate, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+rateColumns+` FROM rates WHERE key = ?`), key)
	r, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Rate{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Rate{}, fmt.Errorf("get rate %s: %w", key, err)
	}
	return r, nil
}

// ByCategory returns the rates of one category ordered by key.
func (s *Store) ByCategory(ctx context.Context, category Category) ([]Rate, error) {
	list, err := s.queryRates(ctx, `SELECT `+rateColumns+` FROM rates WHERE category = ? ORDER BY key`, category)
	if err != nil {
		return nil, fmt.Errorf("list rates for %s: %w", category, err)
	}
	return list, nil
}

// Categories returns the distinct categories present in the table.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM rates ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list rate categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan rate category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Snapshot returns the current values as an immutable table for one computation.
func (s *Store) Snapshot(ctx context.Context) (pricing.RateTable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM rates`)
	if err != nil {
		return nil, fmt.Errorf("snapshot rates: %w", err)
	}
	defer rows.Close()

	table := make(pricing.RateTable)
	for rows.Next() {
		var key string
		var value decimal.Decimal
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		table[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot rates: %w", err)
	}
	return table, nil
}

// Create adds a new key. No history entry is written for the initial value.
func (s *Store) Create(ctx context.Context, in NewRate, createdBy string) (Rate, error) {
	in.Key = strings.TrimSpace(in.Key)
	if err := in.validate(); err != nil {
		return Rate{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("begin create rate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT EXISTS(SELECT 1 FROM rates WHERE key = ?)`), in.Key).Scan(&exists); err != nil {
		return Rate{}, fmt.Errorf("check rate existence: %w", err)
	}
	if exists {
		return Rate{}, fmt.Errorf("%w: %s", ErrDuplicateKey, in.Key)
	}

	r := Rate{
		ID:          uuid.NewString(),
		Key:         in.Key,
		Value:       in.Value,
		Unit:        in.Unit,
		Category:    in.Category,
		Description: in.Description,
		UpdatedAt:   s.now(),
		UpdatedBy:   createdBy,
	}
	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rates (id, key, value, unit, category, description, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.Key, r.Value, r.Unit, r.Category, r.Description, r.UpdatedAt, nullString(createdBy)); err != nil {
		return Rate{}, fmt.Errorf("insert rate %s: %w", r.Key, err)
	}

	if err := tx.Commit(); err != nil {
		return Rate{}, fmt.Errorf("commit create rate transaction: %w", err)
	}
	return r, nil
}

// Update sets a new value for key and appends the history entry atomically.
func (s *Store) Update(ctx context.Context, change Change, changedBy string) (Rate, error) {
	if change.Value.IsNegative() {
		return Rate{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidRate, change.Key)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("begin update rate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.applyChange(ctx, tx, change, changedBy)
	if err != nil {
		return Rate{}, err
	}
	if !ok {
		return Rate{}, fmt.Errorf("%w: %s", ErrNotFound, change.Key)
	}

	if err := tx.Commit(); err != nil {
		return Rate{}, fmt.Errorf("commit update rate transaction: %w", err)
	}
	return s.Get(ctx, change.Key)
}

// BulkUpdate applies every change in a single transaction. Unknown keys are
// skipped; it returns the keys actually updated.
func (s *Store) BulkUpdate(ctx context.Context, changes []Change, changedBy string) ([]string, error) {
	for _, c := range changes {
		if c.Value.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidRate, c.Key)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk rate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := make([]string, 0, len(changes))
	for _, c := range changes {
		ok, err := s.applyChange(ctx, tx, c, changedBy)
		if err != nil {
			return nil, err
		}
		if ok {
			updated = append(updated, c.Key)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk rate transaction: %w", err)
	}
	return updated, nil
}

// applyChange writes history then value. It reports false when the key does not exist.
func (s *Store) applyChange(ctx context.Context, tx *sql.Tx, c Change, changedBy string) (bool, error) {
	var old decimal.Decimal
	err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT value FROM rates WHERE key = ?`), c.Key).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read rate %s: %w", c.Key, err)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rate_history (id, config_key, old_value, new_value, changed_by, changed_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), uuid.NewString(), c.Key, old, c.Value, changedBy, now, nullString(c.Reason)); err != nil {
		return false, fmt.Errorf("insert rate history for %s: %w", c.Key, err)
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		UPDATE rates SET value = ?, updated_at = ?, updated_by = ? WHERE key = ?
	`), c.Value, now, nullString(changedBy), c.Key); err != nil {
		return false, fmt.Errorf("update rate %s: %w", c.Key, err)
	}
	return true, nil
}

// History returns change entries newest first, optionally for one key. The
// limit defaults to 50 and is capped at 100.
func (s *Store) History(ctx context.Context, key string, limit int) ([]HistoryEntry, error) {
	query := `SELECT id, config_key, old_value, new_value, changed_by, changed_at, reason FROM rate_history`
	args := []any{}
	if key != "" {
		query += ` WHERE config_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY changed_at DESC, id LIMIT ?`
	args = append(args, historyLimit(limit))

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var reason sql.NullString
		if err := rows.Scan(&h.ID, &h.ConfigKey, &h.OldValue, &h.NewValue, &h.ChangedBy, &h.ChangedAt, &reason); err != nil {
			return nil, fmt.Errorf("scan rate history: %w", err)
		}
		h.Reason = reason.String
		out = append(out, h)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
