package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/panelpro/internal/db"
	"github.com/Simplici0/panelpro/internal/pricing"
)

// Store reads and writes panels, edges and their links.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: func() time.Time { return time.Now().UTC() }}
}

type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) search(term string, columns ...string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return
	}
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, "LOWER("+c+") LIKE ?")
		w.args = append(w.args, "%"+term+"%")
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// PanelInfo returns the pricing view of an active panel.
func (s *Store) PanelInfo(ctx context.Context, id string) (pricing.PanelInfo, error) {
	var info pricing.PanelInfo
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT price_per_m2, thickness_mm, grain_direction FROM panels WHERE id = ? AND active = ?
	`), id, true).Scan(&info.PricePerM2, &info.ThicknessMM, &info.Grain)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.PanelInfo{}, fmt.Errorf("%w: panel %s", ErrNotFound, id)
	}
	if err != nil {
		return pricing.PanelInfo{}, fmt.Errorf("load panel %s: %w", id, err)
	}
	return info, nil
}

// EdgeInfos returns the pricing view of the requested active edges. Unknown or
// inactive ids are absent from the result.
func (s *Store) EdgeInfos(ctx context.Context, ids []string) (map[string]pricing.EdgeInfo, error) {
	out := make(map[string]pricing.EdgeInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, true)
	query := `SELECT id, price_per_meter, material FROM edges WHERE id IN (?` +
		strings.Repeat(", ?", len(ids)-1) + `) AND active = ?`

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var material EdgeMaterial
		var info pricing.EdgeInfo
		if err := rows.Scan(&id, &info.PricePerMeter, &material); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		info.Laser = material.Laser()
		out[id] = info
	}
	return out, rows.Err()
}

func (s *Store) referenceTaken(ctx context.Context, tx *sql.Tx, table, reference, exceptID string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE reference = ? AND id <> ?)`,
	), reference, exceptID).Scan(&exists)
	return exists, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
