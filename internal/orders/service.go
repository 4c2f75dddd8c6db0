package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/panelpro/internal/pricing"
	"github.com/Simplici0/panelpro/internal/quote"
)

// Pricer prices a batch of parts against one rate snapshot.
type Pricer interface {
	PriceAll(ctx context.Context, parts []pricing.Part) ([]quote.Priced, pricing.RateTable, error)
}

const numberAttempts = 5

type Service struct {
	store      *Store
	pricer     Pricer
	taxPercent decimal.Decimal
	now        func() time.Time
}

func NewService(store *Store, pricer Pricer, taxPercent decimal.Decimal) *Service {
	return &Service{
		store:      store,
		pricer:     pricer,
		taxPercent: taxPercent,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create prices every part on the server, rejects the order if a submitted
// price disagrees, and stores it as PENDING with frozen totals.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := in.normalize(); err != nil {
		return Order{}, err
	}

	parts := make([]pricing.Part, 0, len(in.Parts))
	for _, p := range in.Parts {
		parts = append(parts, p.Part)
	}
	priced, table, err := s.pricer.PriceAll(ctx, parts)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	o := Order{
		ID:              uuid.NewString(),
		Status:          StatusPending,
		Customer:        in.Customer,
		ProjectName:     in.ProjectName,
		DeliveryOption:  in.DeliveryOption,
		DeliveryAddress: in.DeliveryAddress,
		DeliveryDate:    in.DeliveryDate,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		PartCount:       len(priced),
	}
	for i, p := range priced {
		if !pricesMatch(in.Parts[i].CalculatedPrice, p.Breakdown.Total) {
			return Order{}, &PriceMismatchError{
				Index:     i,
				Reference: p.Part.Reference,
				Submitted: in.Parts[i].CalculatedPrice,
				Server:    p.Breakdown,
			}
		}
		o.Parts = append(o.Parts, OrderPart{
			ID:              uuid.NewString(),
			Position:        i,
			Part:            p.Part,
			CalculatedPrice: p.Breakdown.Total,
			PriceBreakdown:  p.Breakdown,
		})
	}

	o.Totals, err = ComputeTotals(partPrices(o.Parts), o.DeliveryOption, table, s.taxPercent)
	if err != nil {
		return Order{}, err
	}

	for attempt := 0; ; attempt++ {
		o.Number = NewNumber(now)
		err = s.store.insert(ctx, o)
		if !errors.Is(err, errNumberTaken) || attempt == numberAttempts-1 {
			break
		}
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, int, error) {
	return s.store.List(ctx, f)
}

// Cancel lets the ordering customer withdraw an order that is not yet confirmed.
func (s *Service) Cancel(ctx context.Context, id, email string) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !o.OwnedBy(email) {
		return Order{}, fmt.Errorf("%w: %s", ErrForbidden, o.Number)
	}
	return s.transition(ctx, o, StatusCancelled)
}

// UpdateStatus moves an order along the production workflow.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return s.transition(ctx, o, to)
}

func (s *Service) transition(ctx context.Context, o Order, to Status) (Order, error) {
	if err := checkTransition(o.Status, to); err != nil {
		return Order{}, err
	}
	from := o.Status
	stamp(&o, to, s.now())
	if err := s.store.updateStatus(ctx, o, from); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Reprice recomputes every part and the totals against the current catalog and
// price list. Only orders nobody has confirmed can be repriced.
func (s *Service) Reprice(ctx context.Context, id string) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !o.Status.Repriceable() {
		return Order{}, fmt.Errorf("%w: %s orders keep their prices", ErrInvalidTransition, o.Status)
	}

	parts := make([]pricing.Part, 0, len(o.Parts))
	for _, p := range o.Parts {
		parts = append(parts, p.Part)
	}
	priced, table, err := s.pricer.PriceAll(ctx, parts)
	if err != nil {
		return Order{}, err
	}
	for i, p := range priced {
		o.Parts[i].CalculatedPrice = p.Breakdown.Total
		o.Parts[i].PriceBreakdown = p.Breakdown
	}
	o.Totals, err = ComputeTotals(partPrices(o.Parts), o.DeliveryOption, table, s.taxPercent)
	if err != nil {
		return Order{}, err
	}
	o.UpdatedAt = s.now()

	if err := s.store.replacePricing(ctx, o, o.Status); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Stats reports order counts and booked revenue.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.store.stats(ctx, monthStart)
}
