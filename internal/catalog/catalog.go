// Package catalog holds the panel and edge banding reference data.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("catalog entry not found")
	ErrInvalidInput = errors.New("invalid catalog input")
	ErrDuplicateRef = errors.New("reference already exists")
)

// PanelMaterial is the board family of a panel.
type PanelMaterial string

const (
	MaterialMelamine   PanelMaterial = "MELAMINE"
	MaterialMDF        PanelMaterial = "MDF"
	MaterialMDFLacquer PanelMaterial = "MDF_LAQUE"
	MaterialLaminate   PanelMaterial = "STRATIFIE"
	MaterialVeneer     PanelMaterial = "PLAQUE_BOIS"
	MaterialPlywood    PanelMaterial = "CONTREPLAQUE"
	MaterialChipboard  PanelMaterial = "AGGLO"
	MaterialCompact    PanelMaterial = "COMPACT"
)

var panelMaterials = []PanelMaterial{
	MaterialMelamine, MaterialMDF, MaterialMDFLacquer, MaterialLaminate,
	MaterialVeneer, MaterialPlywood, MaterialChipboard, MaterialCompact,
}

func (m PanelMaterial) Valid() bool {
	for _, k := range panelMaterials {
		if m == k {
			return true
		}
	}
	return false
}

// EdgeMaterial is the banding material. ABS_LASER is applied without a glue line.
type EdgeMaterial string

const (
	EdgeABS       EdgeMaterial = "ABS"
	EdgeABSLaser  EdgeMaterial = "ABS_LASER"
	EdgeMelamine  EdgeMaterial = "MELAMINE"
	EdgePVC       EdgeMaterial = "PVC"
	EdgeSolidWood EdgeMaterial = "BOIS_MASSIF"
	EdgeAluminium EdgeMaterial = "ALUMINIUM"
	EdgeAcrylic   EdgeMaterial = "ACRYLIQUE"
)

var edgeMaterials = []EdgeMaterial{
	EdgeABS, EdgeABSLaser, EdgeMelamine, EdgePVC, EdgeSolidWood, EdgeAluminium, EdgeAcrylic,
}

func (m EdgeMaterial) Valid() bool {
	for _, k := range edgeMaterials {
		if m == k {
			return true
		}
	}
	return false
}

// Laser reports whether the banding uses the laser application rate.
func (m EdgeMaterial) Laser() bool {
	return m == EdgeABSLaser
}

// Panel is a stocked board. Panels are deactivated, never deleted.
type Panel struct {
	ID             string          `json:"id"`
	Reference      string          `json:"reference"`
	Name           string          `json:"name"`
	Supplier       string          `json:"supplier"`
	Material       PanelMaterial   `json:"material"`
	ThicknessMM    decimal.Decimal `json:"thickness"`
	LengthMM       int             `json:"length"`
	WidthMM        int             `json:"width"`
	PricePerM2     decimal.Decimal `json:"pricePerM2"`
	GrainDirection bool            `json:"grainDirection"`
	ColorCode      string          `json:"colorCode,omitempty"`
	Active         bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	CompatibleEdges []CompatibleEdge `json:"compatibleEdges,omitempty"`
}

// Edge is a stocked edge banding roll.
type Edge struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	Name          string          `json:"name"`
	Material      EdgeMaterial    `json:"material"`
	ThicknessMM   decimal.Decimal `json:"thickness"`
	WidthMM       decimal.Decimal `json:"width"`
	PricePerMeter decimal.Decimal `json:"pricePerMeter"`
	ColorCode     string          `json:"colorCode,omitempty"`
	Active        bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CompatibleEdge is an edge linked to a panel.
type CompatibleEdge struct {
	Edge
	IsDefault bool `json:"isDefault"`
}

// PanelInput holds every editable panel field. Updates replace all of them.
type PanelInput struct {
	Reference      string          `json:"reference"`
	Name           string          `json:"name"`
	Supplier       string          `json:"supplier"`
	Material       PanelMaterial   `json:"material"`
	ThicknessMM    decimal.Decimal `json:"thickness"`
	LengthMM       int             `json:"length"`
	WidthMM        int             `json:"width"`
	PricePerM2     decimal.Decimal `json:"pricePerM2"`
	GrainDirection bool            `json:"grainDirection"`
	ColorCode      string          `json:"colorCode,omitempty"`
}

func (in *PanelInput) normalize() error {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Name = strings.TrimSpace(in.Name)
	in.Supplier = strings.TrimSpace(in.Supplier)

	switch {
	case in.Reference == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidInput)
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Supplier == "":
		return fmt.Errorf("%w: supplier is required", ErrInvalidInput)
	case !in.Material.Valid():
		return fmt.Errorf("%w: unknown panel material %q", ErrInvalidInput, in.Material)
	case !between(in.ThicknessMM, "1", "100"):
		return fmt.Errorf("%w: thickness must be between 1 and 100 mm", ErrInvalidInput)
	case in.LengthMM < 100 || in.LengthMM > 5000:
		return fmt.Errorf("%w: length must be between 100 and 5000 mm", ErrInvalidInput)
	case in.WidthMM < 100 || in.WidthMM > 3000:
		return fmt.Errorf("%w: width must be between 100 and 3000 mm", ErrInvalidInput)
	case in.PricePerM2.IsNegative():
		return fmt.Errorf("%w: price per m2 must not be negative", ErrInvalidInput)
	}
	return nil
}

// EdgeInput holds every editable edge field. Updates replace all of them.
type EdgeInput struct {
	Reference     string          `json:"reference"`
	Name          string          `json:"name"`
	Material      EdgeMaterial    `json:"material"`
	ThicknessMM   decimal.Decimal `json:"thickness"`
	WidthMM       decimal.Decimal `json:"width"`
	PricePerMeter decimal.Decimal `json:"pricePerMeter"`
	ColorCode     string          `json:"colorCode,omitempty"`
}

func (in *EdgeInput) normalize() error {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Name = strings.TrimSpace(in.Name)

	switch {
	case in.Reference == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidInput)
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !in.Material.Valid():
		return fmt.Errorf("%w: unknown edge material %q", ErrInvalidInput, in.Material)
	case !between(in.ThicknessMM, "0.1", "10"):
		return fmt.Errorf("%w: thickness must be between 0.1 and 10 mm", ErrInvalidInput)
	case !between(in.WidthMM, "10", "100"):
		return fmt.Errorf("%w: width must be between 10 and 100 mm", ErrInvalidInput)
	case in.PricePerMeter.IsNegative():
		return fmt.Errorf("%w: price per meter must not be negative", ErrInvalidInput)
	}
	return nil
}

func between(v decimal.Decimal, lo, hi string) bool {
	return v.GreaterThanOrEqual(decimal.RequireFromString(lo)) && v.LessThanOrEqual(decimal.RequireFromString(hi))
}

// PanelFilter narrows a panel listing. A nil Active lists both states.
type PanelFilter struct {
	Material  PanelMaterial
	Supplier  string
	Thickness decimal.NullDecimal
	Search    string
	Active    *bool
	Limit     int
	Offset    int
}

// EdgeFilter narrows an edge listing. When PanelID is set only the edges linked
// to that panel are returned and the other filters are ignored.
type EdgeFilter struct {
	Material  EdgeMaterial
	Thickness decimal.NullDecimal
	Search    string
	PanelID   string
	Active    *bool
	Limit     int
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
