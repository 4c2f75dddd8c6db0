// Package rates stores the price list and its change history.
package rates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups rates for display and administration.
type Category string

const (
	CategoryCutting   Category = "DECOUPE"
	CategoryEdging    Category = "CHANT"
	CategoryDrilling  Category = "PERCAGE"
	CategoryMachining Category = "USINAGE"
	CategoryFinish    Category = "FINITION"
	CategoryDelivery  Category = "LIVRAISON"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryCutting,
	CategoryEdging,
	CategoryDrilling,
	CategoryMachining,
	CategoryFinish,
	CategoryDelivery,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

var (
	ErrNotFound     = errors.New("rate not found")
	ErrDuplicateKey = errors.New("rate key already exists")
	ErrInvalidRate  = errors.New("invalid rate")
)

// Rate is one entry of the price list.
type Rate struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Value       decimal.Decimal `json:"value"`
	Unit        string          `json:"unit"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	UpdatedBy   string          `json:"updatedBy,omitempty"`
}

// HistoryEntry records one value change. Entries are never modified.
type HistoryEntry struct {
	ID        string          `json:"id"`
	ConfigKey string          `json:"configKey"`
	OldValue  decimal.Decimal `json:"oldValue"`
	NewValue  decimal.Decimal `json:"newValue"`
	ChangedBy string          `json:"changedBy"`
	ChangedAt time.Time       `json:"changedAt"`
	Reason    string          `json:"reason,omitempty"`
}

// NewRate is the input for creating a key.
type NewRate struct {
	Key         string          `json:"key"`
	Value       decimal.Decimal `json:"value"`
	Unit        string          `json:"unit"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
}

// Change is one value update, as sent by the admin price editor.
type Change struct {
	Key    string          `json:"key"`
	Value  decimal.Decimal `json:"value"`
	Reason string          `json:"reason,omitempty"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

func historyLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

func (n NewRate) validate() error {
	if strings.TrimSpace(n.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRate)
	}
	if n.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidRate)
	}
	if !n.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRate, n.Category)
	}
	return nil
}

// Group returns the rates keyed by category, preserving input order within each category.
func Group(list []Rate) map[Category][]Rate {
	grouped := make(map[Category][]Rate)
	for _, r := range list {
		grouped[r.Category] = append(grouped[r.Category], r)
	}
	return grouped
}
