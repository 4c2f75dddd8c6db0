package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/panelpro/internal/db"
)

// Store persists orders with their parts. Breakdowns are stored as JSON
// snapshots and read back without recomputation.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const orderColumns = `o.id, o.number, o.status, o.customer_name, o.customer_email, o.customer_phone,
	o.customer_company, o.project_name, o.delivery_option, o.delivery_address, o.delivery_date, o.notes,
	o.subtotal, o.delivery_fee, o.tax_percent, o.tax, o.total, o.created_at, o.updated_at,
	o.confirmed_at, o.produced_at, o.completed_at,
	(SELECT COUNT(*) FROM order_parts p WHERE p.order_id = o.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var deliveryDate, confirmed, produced, completed sql.NullTime
	err := row.Scan(&o.ID, &o.Number, &o.Status, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&o.Customer.Company, &o.ProjectName, &o.DeliveryOption, &o.DeliveryAddress, &deliveryDate, &o.Notes,
		&o.Subtotal, &o.DeliveryFee, &o.TaxPercent, &o.Tax, &o.Total, &o.CreatedAt, &o.UpdatedAt,
		&confirmed, &produced, &completed, &o.PartCount)
	if err != nil {
		return Order{}, err
	}
	o.DeliveryDate = timePtr(deliveryDate)
	o.ConfirmedAt = timePtr(confirmed)
	o.ProducedAt = timePtr(produced)
	o.CompletedAt = timePtr(completed)
	return o, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// insert writes the order and its parts in one transaction.
func (s *Store) insert(ctx context.Context, o Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var taken bool
	if err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT EXISTS(SELECT 1 FROM orders WHERE number = ?)`), o.Number).Scan(&taken); err != nil {
		return fmt.Errorf("check order number: %w", err)
	}
	if taken {
		return errNumberTaken
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO orders (
			id, number, status, customer_name, customer_email, customer_phone, customer_company,
			project_name, delivery_option, delivery_address, delivery_date, notes,
			subtotal, delivery_fee, tax_percent, tax, total, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), o.ID, o.Number, o.Status, o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Company,
		o.ProjectName, o.DeliveryOption, o.DeliveryAddress, nullTime(o.DeliveryDate), o.Notes,
		o.Subtotal, o.DeliveryFee, o.TaxPercent, o.Tax, o.Total, o.CreatedAt, o.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, p := range o.Parts {
		config, err := json.Marshal(p.Part)
		if err != nil {
			return fmt.Errorf("encode part %s: %w", p.Reference, err)
		}
		breakdown, err := json.Marshal(p.PriceBreakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown for %s: %w", p.Reference, err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO order_parts (
				id, order_id, position, reference, quantity, panel_id, length_mm, width_mm,
				config_json, calculated_price, breakdown_json
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), p.ID, o.ID, p.Position, p.Reference, p.Quantity, p.PanelID, p.Length, p.Width,
			string(config), p.CalculatedPrice, string(breakdown)); err != nil {
			return fmt.Errorf("insert part %s: %w", p.Reference, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order transaction: %w", err)
	}
	return nil
}

// Get returns an order with its parts in submission order.
func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order %s: %w", id, err)
	}

	parts, err := s.parts(ctx, id)
	if err != nil {
		return Order{}, err
	}
	o.Parts = parts
	return o, nil
}

func (s *Store) parts(ctx context.Context, orderID string) ([]OrderPart, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, position, config_json, calculated_price, breakdown_json
		FROM order_parts
		WHERE order_id = ?
		ORDER BY position
	`), orderID)
	if err != nil {
		return nil, fmt.Errorf("list parts for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []OrderPart
	for rows.Next() {
		var p OrderPart
		var config, breakdown string
		if err := rows.Scan(&p.ID, &p.Position, &config, &p.CalculatedPrice, &breakdown); err != nil {
			return nil, fmt.Errorf("scan order part: %w", err)
		}
		if err := json.Unmarshal([]byte(config), &p.Part); err != nil {
			return nil, fmt.Errorf("decode part %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(breakdown), &p.PriceBreakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Filter narrows an order listing.
type Filter struct {
	Status        Status
	CustomerEmail string
	Search        string
	Limit         int
	Offset        int
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func listLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

// List returns one page of orders, newest first, without their parts, plus the
// total count matching the filter.
func (s *Store) List(ctx context.Context, f Filter) ([]Order, int, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "o.status = ?")
		args = append(args, f.Status)
	}
	if f.CustomerEmail != "" {
		clauses = append(clauses, "o.customer_email = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.CustomerEmail)))
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		clauses = append(clauses, `(LOWER(o.number) LIKE ? OR LOWER(o.project_name) LIKE ?
			OR LOWER(o.customer_name) LIKE ? OR LOWER(o.customer_company) LIKE ?)`)
		like := "%" + term + "%"
		args = append(args, like, like, like, like)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM orders o`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	pageArgs := append(append([]any{}, args...), listLimit(f.Limit), offset)
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+orderColumns+` FROM orders o`+where+` ORDER BY o.created_at DESC, o.number DESC LIMIT ? OFFSET ?`), pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return out, total, nil
}

// updateStatus writes the new status and milestones if the order is still in
// the status it was read in.
func (s *Store) updateStatus(ctx context.Context, o Order, from Status) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE orders
		SET status = ?, updated_at = ?, confirmed_at = ?, produced_at = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`), o.Status, o.UpdatedAt, nullTime(o.ConfirmedAt), nullTime(o.ProducedAt), nullTime(o.CompletedAt), o.ID, from)
	if err != nil {
		return fmt.Errorf("update order %s status: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for order %s: %w", o.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, o.ID)
	}
	return nil
}

// replacePricing overwrites part prices and order totals, guarded on status.
func (s *Store) replacePricing(ctx context.Context, o Order, from Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reprice transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.db.Rebind(`
		UPDATE orders
		SET subtotal = ?, delivery_fee = ?, tax_percent = ?, tax = ?, total = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`), o.Subtotal, o.DeliveryFee, o.TaxPercent, o.Tax, o.Total, o.UpdatedAt, o.ID, from)
	if err != nil {
		return fmt.Errorf("update order %s totals: %w", o.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected for order %s: %w", o.ID, err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, o.ID)
	}

	for _, p := range o.Parts {
		breakdown, err := json.Marshal(p.PriceBreakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown for %s: %w", p.Reference, err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			UPDATE order_parts SET calculated_price = ?, breakdown_json = ? WHERE id = ?
		`), p.CalculatedPrice, string(breakdown), p.ID); err != nil {
			return fmt.Errorf("update part %s price: %w", p.Reference, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reprice transaction: %w", err)
	}
	return nil
}

// Stats summarizes the order book.
type Stats struct {
	TotalOrders        int             `json:"totalOrders"`
	PendingOrders      int             `json:"pendingOrders"`
	InProductionOrders int             `json:"inProductionOrders"`
	CompletedOrders    int             `json:"completedOrders"`
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	OrdersThisMonth    int             `json:"ordersThisMonth"`
	ByStatus           map[Status]int  `json:"byStatus"`
}

func (s *Store) stats(ctx context.Context, monthStart time.Time) (Stats, error) {
	st := Stats{ByStatus: map[Status]int{}, TotalRevenue: decimal.Zero}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("count orders by status: %w", err)
	}
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan status count: %w", err)
		}
		st.ByStatus[status] = n
		st.TotalOrders += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("count orders by status: %w", err)
	}
	st.PendingOrders = st.ByStatus[StatusPending]
	st.InProductionOrders = st.ByStatus[StatusInProduction]
	st.CompletedOrders = st.ByStatus[StatusCompleted]

	// Summed here so text-stored decimals on sqlite stay exact.
	args := make([]any, 0, len(revenueStatuses))
	for _, v := range revenueStatuses {
		args = append(args, v)
	}
	totals, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT total FROM orders WHERE status IN (?`+strings.Repeat(", ?", len(revenueStatuses)-1)+`)`), args...)
	if err != nil {
		return Stats{}, fmt.Errorf("load revenue: %w", err)
	}
	for totals.Next() {
		var v decimal.Decimal
		if err := totals.Scan(&v); err != nil {
			totals.Close()
			return Stats{}, fmt.Errorf("scan revenue: %w", err)
		}
		st.TotalRevenue = st.TotalRevenue.Add(v)
	}
	totals.Close()
	if err := totals.Err(); err != nil {
		return Stats{}, fmt.Errorf("load revenue: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM orders WHERE created_at >= ?`), monthStart).Scan(&st.OrdersThisMonth); err != nil {
		return Stats{}, fmt.Errorf("count orders this month: %w", err)
	}
	return st, nil
}

func partPrices(parts []OrderPart) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.CalculatedPrice)
	}
	return out
}
