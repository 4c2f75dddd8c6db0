package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const panelColumns = `id, reference, name, supplier, material, thickness_mm, length_mm, width_mm,
	price_per_m2, grain_direction, color_code, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPanel(row rowScanner) (Panel, error) {
	var p Panel
	var color sql.NullString
	err := row.Scan(&p.ID, &p.Reference, &p.Name, &p.Supplier, &p.Material, &p.ThicknessMM,
		&p.LengthMM, &p.WidthMM, &p.PricePerM2, &p.GrainDirection, &color, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	p.ColorCode = color.String
	return p, err
}

func panelWhere(f PanelFilter) *where {
	w := &where{}
	if f.Active != nil {
		w.add("active = ?", *f.Active)
	}
	if f.Material != "" {
		w.add("material = ?", f.Material)
	}
	if f.Supplier != "" {
		w.search(f.Supplier, "supplier")
	}
	if f.Thickness.Valid {
		w.add("thickness_mm = ?", f.Thickness.Decimal)
	}
	w.search(f.Search, "name", "reference")
	return w
}

// ListPanels returns one page of panels ordered by name, plus the total count
// matching the filter.
func (s *Store) ListPanels(ctx context.Context, f PanelFilter) ([]Panel, int, error) {
	w := panelWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM panels`+w.String()), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count panels: %w", err)
	}

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args := append(append([]any{}, w.args...), listLimit(f.Limit), offset)
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+panelColumns+` FROM panels`+w.String()+` ORDER BY name, reference LIMIT ? OFFSET ?`), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list panels: %w", err)
	}
	defer rows.Close()

	panels := []Panel{}
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan panel: %w", err)
		}
		panels = append(panels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list panels: %w", err)
	}
	return panels, total, nil
}

// GetPanel returns a panel with its compatible edges, active or not.
func (s *Store) GetPanel(ctx context.Context, id string) (Panel, error) {
	p, err := scanPanel(s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+panelColumns+` FROM panels WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Panel{}, fmt.Errorf("%w: panel %s", ErrNotFound, id)
	}
	if err != nil {
		return Panel{}, fmt.Errorf("get panel %s: %w", id, err)
	}

	edges, err := s.compatibleEdges(ctx, id, nil)
	if err != nil {
		return Panel{}, err
	}
	p.CompatibleEdges = edges
	return p, nil
}

// CreatePanel validates and inserts a new active panel.
func (s *Store) CreatePanel(ctx context.Context, in PanelInput) (Panel, error) {
	if err := in.normalize(); err != nil {
		return Panel{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Panel{}, fmt.Errorf("begin create panel transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := s.referenceTaken(ctx, tx, "panels", in.Reference, "")
	if err != nil {
		return Panel{}, fmt.Errorf("check panel reference: %w", err)
	}
	if taken {
		return Panel{}, fmt.Errorf("%w: %s", ErrDuplicateRef, in.Reference)
	}

	now := s.now()
	p := panelFromInput(uuid.NewString(), in)
	p.Active = true
	p.CreatedAt, p.UpdatedAt = now, now

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO panels (`+panelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.Reference, p.Name, p.Supplier, p.Material, p.ThicknessMM, p.LengthMM, p.WidthMM,
		p.PricePerM2, p.GrainDirection, nullString(p.ColorCode), p.Active, p.CreatedAt, p.UpdatedAt); err != nil {
		return Panel{}, fmt.Errorf("insert panel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Panel{}, fmt.Errorf("commit create panel transaction: %w", err)
	}
	return p, nil
}

// UpdatePanel replaces the editable fields of a panel.
func (s *Store) UpdatePanel(ctx context.Context, id string, in PanelInput) (Panel, error) {
	if err := in.normalize(); err != nil {
		return Panel{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Panel{}, fmt.Errorf("begin update panel transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := s.referenceTaken(ctx, tx, "panels", in.Reference, id)
	if err != nil {
		return Panel{}, fmt.Errorf("check panel reference: %w", err)
	}
	if taken {
		return Panel{}, fmt.Errorf("%w: %s", ErrDuplicateRef, in.Reference)
	}

	res, err := tx.ExecContext(ctx, s.db.Rebind(`
		UPDATE panels
		SET reference = ?, name = ?, supplier = ?, material = ?, thickness_mm = ?, length_mm = ?,
			width_mm = ?, price_per_m2 = ?, grain_direction = ?, color_code = ?, updated_at = ?
		WHERE id = ?
	`), in.Reference, in.Name, in.Supplier, in.Material, in.ThicknessMM, in.LengthMM, in.WidthMM,
		in.PricePerM2, in.GrainDirection, nullString(in.ColorCode), s.now(), id)
	if err != nil {
		return Panel{}, fmt.Errorf("update panel %s: %w", id, err)
	}
	if err := requireOneRow(res, "panel", id); err != nil {
		return Panel{}, err
	}

	if err := tx.Commit(); err != nil {
		return Panel{}, fmt.Errorf("commit update panel transaction: %w", err)
	}
	return s.GetPanel(ctx, id)
}

// DeactivatePanel soft-deletes a panel. Existing orders keep referencing it.
func (s *Store) DeactivatePanel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE panels SET active = ?, updated_at = ? WHERE id = ?`), false, s.now(), id)
	if err != nil {
		return fmt.Errorf("deactivate panel %s: %w", id, err)
	}
	return requireOneRow(res, "panel", id)
}

// Suppliers returns the distinct suppliers of active panels.
func (s *Store) Suppliers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT DISTINCT supplier FROM panels WHERE active = ? ORDER BY supplier`), true)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Thicknesses returns the distinct thicknesses of active panels in ascending order.
func (s *Store) Thicknesses(ctx context.Context) ([]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT DISTINCT thickness_mm FROM panels WHERE active = ?`), true)
	if err != nil {
		return nil, fmt.Errorf("list thicknesses: %w", err)
	}
	defer rows.Close()

	out := []decimal.Decimal{}
	for rows.Next() {
		var v decimal.Decimal
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan thickness: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list thicknesses: %w", err)
	}

	// Stored as text on sqlite, so order numerically here.
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out, nil
}

func panelFromInput(id string, in PanelInput) Panel {
	return Panel{
		ID:             id,
		Reference:      in.Reference,
		Name:           in.Name,
		Supplier:       in.Supplier,
		Material:       in.Material,
		ThicknessMM:    in.ThicknessMM,
		LengthMM:       in.LengthMM,
		WidthMM:        in.WidthMM,
		PricePerM2:     in.PricePerM2,
		GrainDirection: in.GrainDirection,
		ColorCode:      in.ColorCode,
	}
}

func requireOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}
