// Package quote prices part configurations against the live catalog and price list.
package quote

import (
	"context"
	"fmt"

	"github.com/Simplici0/panelpro/internal/pricing"
)

// Catalog resolves the reference data the engine needs.
type Catalog interface {
	PanelInfo(ctx context.Context, id string) (pricing.PanelInfo, error)
	EdgeInfos(ctx context.Context, ids []string) (map[string]pricing.EdgeInfo, error)
}

// RateSource provides a consistent price list for one computation.
type RateSource interface {
	Snapshot(ctx context.Context) (pricing.RateTable, error)
}

type Service struct {
	catalog Catalog
	rates   RateSource
}

func NewService(catalog Catalog, rates RateSource) *Service {
	return &Service{catalog: catalog, rates: rates}
}

// Quote prices a part as it is being configured. An incomplete part yields a
// zero breakdown.
func (s *Service) Quote(ctx context.Context, part pricing.Part) (pricing.Breakdown, error) {
	if part.PanelID == "" {
		return pricing.Breakdown{}, nil
	}

	table, err := s.rates.Snapshot(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return s.price(ctx, part, table)
}

// Priced is a submitted part with its server-side breakdown.
type Priced struct {
	Part      pricing.Part
	Breakdown pricing.Breakdown
}

// PriceAll validates every part for submission and prices them all against one
// rate snapshot, which is returned for the order-level charges.
func (s *Service) PriceAll(ctx context.Context, parts []pricing.Part) ([]Priced, pricing.RateTable, error) {
	for i, p := range parts {
		if err := pricing.Validate(p); err != nil {
			return nil, nil, fmt.Errorf("part %d (%s): %w", i+1, p.Reference, err)
		}
	}

	table, err := s.rates.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	out := make([]Priced, 0, len(parts))
	for i, p := range parts {
		b, err := s.price(ctx, p, table)
		if err != nil {
			return nil, nil, fmt.Errorf("part %d (%s): %w", i+1, p.Reference, err)
		}
		out = append(out, Priced{Part: p, Breakdown: b})
	}
	return out, table, nil
}

func (s *Service) price(ctx context.Context, part pricing.Part, table pricing.RateTable) (pricing.Breakdown, error) {
	panel, err := s.catalog.PanelInfo(ctx, part.PanelID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	edges, err := s.catalog.EdgeInfos(ctx, part.EdgeIDs())
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return pricing.Calculate(part, &panel, edges, table)
}
