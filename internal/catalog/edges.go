package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const edgeColumns = `id, reference, name, material, thickness_mm, width_mm, price_per_meter,
	color_code, active, created_at, updated_at`

func scanEdge(row rowScanner) (Edge, error) {
	var e Edge
	var color sql.NullString
	err := row.Scan(&e.ID, &e.Reference, &e.Name, &e.Material, &e.ThicknessMM, &e.WidthMM,
		&e.PricePerMeter, &color, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	e.ColorCode = color.String
	return e, err
}

// ListEdges returns edges ordered by name. With a PanelID it returns the
// panel's compatible edges, flagged with their default status.
func (s *Store) ListEdges(ctx context.Context, f EdgeFilter) ([]CompatibleEdge, error) {
	if f.PanelID != "" {
		return s.compatibleEdges(ctx, f.PanelID, f.Active)
	}

	w := &where{}
	if f.Active != nil {
		w.add("active = ?", *f.Active)
	}
	if f.Material != "" {
		w.add("material = ?", f.Material)
	}
	if f.Thickness.Valid {
		w.add("thickness_mm = ?", f.Thickness.Decimal)
	}
	w.search(f.Search, "name", "reference")

	args := append(append([]any{}, w.args...), listLimit(f.Limit))
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+edgeColumns+` FROM edges`+w.String()+` ORDER BY name, reference LIMIT ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	out := []CompatibleEdge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, CompatibleEdge{Edge: e})
	}
	return out, rows.Err()
}

func (s *Store) compatibleEdges(ctx context.Context, panelID string, active *bool) ([]CompatibleEdge, error) {
	query := `
		SELECT e.id, e.reference, e.name, e.material, e.thickness_mm, e.width_mm, e.price_per_meter,
			e.color_code, e.active, e.created_at, e.updated_at, pe.is_default
		FROM panel_edges pe
		JOIN edges e ON e.id = pe.edge_id
		WHERE pe.panel_id = ?`
	args := []any{panelID}
	if active != nil {
		query += ` AND e.active = ?`
		args = append(args, *active)
	}
	query += ` ORDER BY pe.is_default DESC, e.name`

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list compatible edges for %s: %w", panelID, err)
	}
	defer rows.Close()

	out := []CompatibleEdge{}
	for rows.Next() {
		var ce CompatibleEdge
		var color sql.NullString
		if err := rows.Scan(&ce.ID, &ce.Reference, &ce.Name, &ce.Material, &ce.ThicknessMM, &ce.WidthMM,
			&ce.PricePerMeter, &color, &ce.Active, &ce.CreatedAt, &ce.UpdatedAt, &ce.IsDefault); err != nil {
			return nil, fmt.Errorf("scan compatible edge: %w", err)
		}
		ce.ColorCode = color.String
		out = append(out, ce)
	}
	return out, rows.Err()
}

// GetEdge returns one edge, active or not.
func (s *Store) GetEdge(ctx context.Context, id string) (Edge, error) {
	e, err := scanEdge(s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+edgeColumns+` FROM edges WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Edge{}, fmt.Errorf("%w: edge %s", ErrNotFound, id)
	}
	if err != nil {
		return Edge{}, fmt.Errorf("get edge %s: %w", id, err)
	}
	return e, nil
}

// CreateEdge validates and inserts a new active edge.
func (s *Store) CreateEdge(ctx context.Context, in EdgeInput) (Edge, error) {
	if err := in.normalize(); err != nil {
		return Edge{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Edge{}, fmt.Errorf("begin create edge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := s.referenceTaken(ctx, tx, "edges", in.Reference, "")
	if err != nil {
		return Edge{}, fmt.Errorf("check edge reference: %w", err)
	}
	if taken {
		return Edge{}, fmt.Errorf("%w: %s", ErrDuplicateRef, in.Reference)
	}

	now := s.now()
	e := Edge{
		ID:            uuid.NewString(),
		Reference:     in.Reference,
		Name:          in.Name,
		Material:      in.Material,
		ThicknessMM:   in.ThicknessMM,
		WidthMM:       in.WidthMM,
		PricePerMeter: in.PricePerMeter,
		ColorCode:     in.ColorCode,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), e.ID, e.Reference, e.Name, e.Material, e.ThicknessMM, e.WidthMM, e.PricePerMeter,
		nullString(e.ColorCode), e.Active, e.CreatedAt, e.UpdatedAt); err != nil {
		return Edge{}, fmt.Errorf("insert edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Edge{}, fmt.Errorf("commit create edge transaction: %w", err)
	}
	return e, nil
}

// UpdateEdge replaces the editable fields of an edge.
func (s *Store) UpdateEdge(ctx context.Context, id string, in EdgeInput) (Edge, error) {
	if err := in.normalize(); err != nil {
		return Edge{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Edge{}, fmt.Errorf("begin update edge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := s.referenceTaken(ctx, tx, "edges", in.Reference, id)
	if err != nil {
		return Edge{}, fmt.Errorf("check edge reference: %w", err)
	}
	if taken {
		return Edge{}, fmt.Errorf("%w: %s", ErrDuplicateRef, in.Reference)
	}

	res, err := tx.ExecContext(ctx, s.db.Rebind(`
		UPDATE edges
		SET reference = ?, name = ?, material = ?, thickness_mm = ?, width_mm = ?,
			price_per_meter = ?, color_code = ?, updated_at = ?
		WHERE id = ?
	`), in.Reference, in.Name, in.Material, in.ThicknessMM, in.WidthMM, in.PricePerMeter,
		nullString(in.ColorCode), s.now(), id)
	if err != nil {
		return Edge{}, fmt.Errorf("update edge %s: %w", id, err)
	}
	if err := requireOneRow(res, "edge", id); err != nil {
		return Edge{}, err
	}

	if err := tx.Commit(); err != nil {
		return Edge{}, fmt.Errorf("commit update edge transaction: %w", err)
	}
	return s.GetEdge(ctx, id)
}

// DeactivateEdge soft-deletes an edge. Parts referencing it can no longer be priced.
func (s *Store) DeactivateEdge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE edges SET active = ?, updated_at = ? WHERE id = ?`), false, s.now(), id)
	if err != nil {
		return fmt.Errorf("deactivate edge %s: %w", id, err)
	}
	return requireOneRow(res, "edge", id)
}

// LinkEdge declares an edge compatible with a panel, or updates the default flag
// of an existing link.
func (s *Store) LinkEdge(ctx context.Context, panelID, edgeID string, isDefault bool) error {
	if _, err := s.GetPanel(ctx, panelID); err != nil {
		return err
	}
	if _, err := s.GetEdge(ctx, edgeID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO panel_edges (panel_id, edge_id, is_default)
		VALUES (?, ?, ?)
		ON CONFLICT (panel_id, edge_id) DO UPDATE SET is_default = excluded.is_default
	`), panelID, edgeID, isDefault); err != nil {
		return fmt.Errorf("link edge %s to panel %s: %w", edgeID, panelID, err)
	}
	return nil
}

// EdgeMaterials returns the distinct materials of active edges.
func (s *Store) EdgeMaterials(ctx context.Context) ([]EdgeMaterial, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT DISTINCT material FROM edges WHERE active = ? ORDER BY material`), true)
	if err != nil {
		return nil, fmt.Errorf("list edge materials: %w", err)
	}
	defer rows.Close()

	out := []EdgeMaterial{}
	for rows.Next() {
		var m EdgeMaterial
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan edge material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
