package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/panelpro/internal/catalog"
	"github.com/Simplici0/panelpro/internal/db"
	"github.com/Simplici0/panelpro/internal/pricing"
	"github.com/Simplici0/panelpro/internal/rates"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type rateSeed struct {
	key         string
	value       string
	unit        string
	category    rates.Category
	description string
}

// defaultRates is the initial price list. Values are only inserted when the
// key is missing; admin edits are never overwritten.
var defaultRates = []rateSeed{
	{pricing.KeyCutPerCut, "1.50", "EUR/coupe", rates.CategoryCutting, "Prix par coupe de panneau"},
	{pricing.KeyCutMinimum, "5.00", "EUR", rates.CategoryCutting, "Minimum de découpe par ligne"},
	{pricing.KeyEdgeApply, "2.00", "EUR/ml", rates.CategoryEdging, "Pose de chant au mètre linéaire"},
	{pricing.KeyEdgeApplyLaser, "3.50", "EUR/ml", rates.CategoryEdging, "Pose de chant laser au mètre linéaire"},
	{pricing.KeyDrillHole, "0.15", "EUR/trou", rates.CategoryDrilling, "Perçage unitaire"},
	{pricing.KeyDrillLine, "2.00", "EUR/ligne", rates.CategoryDrilling, "Ligne de perçage système 32"},
	{pricing.KeyHardware, "1.00", "EUR/unité", rates.CategoryDrilling, "Perçage pour quincaillerie"},
	{pricing.KeyGroove, "3.00", "EUR/ml", rates.CategoryMachining, "Rainure au mètre linéaire"},
	{pricing.KeyRebate, "4.00", "EUR/ml", rates.CategoryMachining, "Feuillure au mètre linéaire"},
	{pricing.KeyNotch, "5.00", "EUR/unité", rates.CategoryMachining, "Encoche"},
	{pricing.KeyCutout, "8.00", "EUR/unité", rates.CategoryMachining, "Découpe intérieure"},
	{pricing.KeyFinishVarnish, "1.40", "coef", rates.CategoryFinish, "Multiplicateur vernis"},
	{pricing.KeyFinishOil, "1.30", "coef", rates.CategoryFinish, "Multiplicateur huile"},
	{pricing.KeyFinishWax, "1.20", "coef", rates.CategoryFinish, "Multiplicateur cire"},
	{pricing.KeyFinishPaint, "1.80", "coef", rates.CategoryFinish, "Multiplicateur peinture"},
	{pricing.KeyDeliveryBase, "35.00", "EUR", rates.CategoryDelivery, "Livraison standard"},
	{pricing.KeyDeliveryPerKm, "1.20", "EUR/km", rates.CategoryDelivery, "Transport au kilomètre"},
	{pricing.KeyDeliveryExpress, "65.00", "EUR", rates.CategoryDelivery, "Livraison express"},
}

type panelSeed struct {
	reference, name, supplier string
	material                  catalog.PanelMaterial
	thickness                 string
	length, width             int
	price                     string
	grain                     bool
	color                     string
}

var defaultPanels = []panelSeed{
	{"MEL-BLANC-18", "Mélaminé Blanc 18mm", "Egger", catalog.MaterialMelamine, "18", 2800, 2070, "25.50", false, "W1000"},
	{"MEL-CHENE-18", "Mélaminé Chêne Naturel 18mm", "Egger", catalog.MaterialMelamine, "18", 2800, 2070, "32.00", true, "H3303"},
	{"MDF-19", "MDF Standard 19mm", "Kronospan", catalog.MaterialMDF, "19", 2800, 2070, "18.00", false, ""},
	{"STRAT-BLANC-19", "Stratifié Blanc 19mm", "Polyrey", catalog.MaterialLaminate, "19", 3050, 1300, "45.00", false, "B001"},
}

type edgeSeed struct {
	reference, name string
	material        catalog.EdgeMaterial
	thickness       string
	width           string
	price           string
	color           string
}

var defaultEdges = []edgeSeed{
	{"ABS-BLANC-23", "ABS Blanc 23x1mm", catalog.EdgeABS, "1", "23", "0.85", "W1000"},
	{"ABS-CHENE-23", "ABS Chêne Naturel 23x1mm", catalog.EdgeABS, "1", "23", "1.20", "H3303"},
	{"ABS-LASER-BLANC-23", "ABS Laser Blanc 23x1mm", catalog.EdgeABSLaser, "1", "23", "1.50", "W1000"},
}

// defaultLinks pairs panel and edge references as default compatible edges.
var defaultLinks = [][2]string{
	{"MEL-BLANC-18", "ABS-BLANC-23"},
	{"MEL-BLANC-18", "ABS-LASER-BLANC-23"},
	{"MEL-CHENE-18", "ABS-CHENE-23"},
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, database *db.DB, cfg Config) (Stats, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := seeder{db: database, tx: tx, now: time.Now().UTC()}

	if err := s.seedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return Stats{}, err
	}
	if err := s.ensureRates(ctx); err != nil {
		return Stats{}, err
	}
	if err := s.ensurePanels(ctx); err != nil {
		return Stats{}, err
	}
	if err := s.ensureEdges(ctx); err != nil {
		return Stats{}, err
	}
	if err := s.ensureLinks(ctx); err != nil {
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return s.stats, nil
}

type seeder struct {
	db    *db.DB
	tx    *sql.Tx
	now   time.Time
	stats Stats
}

func (s *seeder) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	err := s.tx.QueryRowContext(ctx, s.db.Rebind(query), args...).Scan(&ok)
	return ok, err
}

func (s *seeder) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.tx.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

func (s *seeder) seedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	exists, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
	if err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if err := s.exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), email, string(hash), "Administrateur", "ADMIN", s.now); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	s.stats.Inserts++
	return nil
}

func (s *seeder) ensureRates(ctx context.Context) error {
	for _, r := range defaultRates {
		exists, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM rates WHERE key = ?)`, r.key)
		if err != nil {
			return fmt.Errorf("check rate %s existence: %w", r.key, err)
		}
		if exists {
			continue
		}
		if err := s.exec(ctx, `
			INSERT INTO rates (id, key, value, unit, category, description, updated_at, updated_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), r.key, decimal.RequireFromString(r.value), r.unit, r.category, r.description, s.now, "seed"); err != nil {
			return fmt.Errorf("insert rate %s: %w", r.key, err)
		}
		s.stats.Inserts++
	}
	return nil
}

func (s *seeder) ensurePanels(ctx context.Context) error {
	for _, p := range defaultPanels {
		exists, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM panels WHERE reference = ?)`, p.reference)
		if err != nil {
			return fmt.Errorf("check panel %s existence: %w", p.reference, err)
		}
		if exists {
			continue
		}
		if err := s.exec(ctx, `
			INSERT INTO panels (
				id, reference, name, supplier, material, thickness_mm, length_mm, width_mm,
				price_per_m2, grain_direction, color_code, active, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), p.reference, p.name, p.supplier, p.material, decimal.RequireFromString(p.thickness),
			p.length, p.width, decimal.RequireFromString(p.price), p.grain, nullString(p.color), true, s.now, s.now); err != nil {
			return fmt.Errorf("insert panel %s: %w", p.reference, err)
		}
		s.stats.Inserts++
	}
	return nil
}

func (s *seeder) ensureEdges(ctx context.Context) error {
	for _, e := range defaultEdges {
		exists, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM edges WHERE reference = ?)`, e.reference)
		if err != nil {
			return fmt.Errorf("check edge %s existence: %w", e.reference, err)
		}
		if exists {
			continue
		}
		if err := s.exec(ctx, `
			INSERT INTO edges (
				id, reference, name, material, thickness_mm, width_mm, price_per_meter,
				color_code, active, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), e.reference, e.name, e.material, decimal.RequireFromString(e.thickness),
			decimal.RequireFromString(e.width), decimal.RequireFromString(e.price), nullString(e.color), true, s.now, s.now); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.reference, err)
		}
		s.stats.Inserts++
	}
	return nil
}

func (s *seeder) ensureLinks(ctx context.Context) error {
	for _, l := range defaultLinks {
		var panelID, edgeID string
		if err := s.tx.QueryRowContext(ctx, s.db.Rebind(`SELECT id FROM panels WHERE reference = ?`), l[0]).Scan(&panelID); err != nil {
			return fmt.Errorf("find panel %s: %w", l[0], err)
		}
		if err := s.tx.QueryRowContext(ctx, s.db.Rebind(`SELECT id FROM edges WHERE reference = ?`), l[1]).Scan(&edgeID); err != nil {
			return fmt.Errorf("find edge %s: %w", l[1], err)
		}

		exists, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM panel_edges WHERE panel_id = ? AND edge_id = ?)`, panelID, edgeID)
		if err != nil {
			return fmt.Errorf("check link %s/%s: %w", l[0], l[1], err)
		}
		if exists {
			continue
		}
		if err := s.exec(ctx, `INSERT INTO panel_edges (panel_id, edge_id, is_default) VALUES (?, ?, ?)`, panelID, edgeID, true); err != nil {
			return fmt.Errorf("link %s/%s: %w", l[0], l[1], err)
		}
		s.stats.Inserts++
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
