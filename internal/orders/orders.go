// Package orders turns priced parts into orders and drives their lifecycle.
package orders

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/panelpro/internal/pricing"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrPriceMismatch     = errors.New("submitted price does not match server price")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("order belongs to another customer")
	ErrConflict          = errors.New("order was modified concurrently")
	errNumberTaken       = errors.New("order number already used")
)

// Customer identifies who placed the order. There are no customer accounts; the
// e-mail address is the ownership key for customer actions.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// Order is a set of priced parts with its delivery choice and frozen totals.
type Order struct {
	ID              string         `json:"id"`
	Number          string         `json:"orderNumber"`
	Status          Status         `json:"status"`
	Customer        Customer       `json:"customer"`
	ProjectName     string         `json:"projectName,omitempty"`
	DeliveryOption  DeliveryOption `json:"deliveryOption"`
	DeliveryAddress string         `json:"deliveryAddress,omitempty"`
	DeliveryDate    *time.Time     `json:"deliveryDate,omitempty"`
	Notes           string         `json:"notes,omitempty"`

	Totals

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ProducedAt  *time.Time `json:"producedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	PartCount int         `json:"partCount"`
	Parts     []OrderPart `json:"parts,omitempty"`
}

// OwnedBy reports whether email matches the ordering customer.
func (o Order) OwnedBy(email string) bool {
	return email != "" && strings.EqualFold(strings.TrimSpace(email), o.Customer.Email)
}

// OrderPart is a part as it was priced when the order was placed.
type OrderPart struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	pricing.Part
	CalculatedPrice decimal.Decimal   `json:"calculatedPrice"`
	PriceBreakdown  pricing.Breakdown `json:"priceBreakdown"`
}

// PartInput is a submitted part with the price the client displayed.
type PartInput struct {
	pricing.Part
	CalculatedPrice decimal.Decimal    `json:"calculatedPrice"`
	PriceBreakdown  *pricing.Breakdown `json:"priceBreakdown,omitempty"`
}

// CreateInput is the checkout payload.
type CreateInput struct {
	Customer        Customer       `json:"customer"`
	ProjectName     string         `json:"projectName,omitempty"`
	Parts           []PartInput    `json:"parts"`
	DeliveryOption  DeliveryOption `json:"deliveryOption"`
	DeliveryAddress string         `json:"deliveryAddress,omitempty"`
	DeliveryDate    *time.Time     `json:"deliveryDate,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}

func (in *CreateInput) normalize() error {
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.ToLower(strings.TrimSpace(in.Customer.Email))
	if in.DeliveryOption == "" {
		in.DeliveryOption = DeliveryPickup
	}

	switch {
	case in.Customer.Name == "":
		return fmt.Errorf("%w: customer name is required", ErrInvalidOrder)
	case !strings.Contains(in.Customer.Email, "@"):
		return fmt.Errorf("%w: a valid customer e-mail is required", ErrInvalidOrder)
	case len(in.Parts) == 0:
		return fmt.Errorf("%w: at least one part is required", ErrInvalidOrder)
	case !in.DeliveryOption.Valid():
		return fmt.Errorf("%w: unknown delivery option %q", ErrInvalidOrder, in.DeliveryOption)
	}

	parts := make([]pricing.Part, 0, len(in.Parts))
	for _, p := range in.Parts {
		parts = append(parts, p.Part)
	}
	if ref := DuplicateReference(parts); ref != "" {
		return fmt.Errorf("%w: part reference %q is used twice", ErrInvalidOrder, ref)
	}
	return nil
}

// DuplicateReference returns the first part reference used more than once, or "".
// References are compared case-insensitively.
func DuplicateReference(parts []pricing.Part) string {
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		k := strings.ToLower(strings.TrimSpace(p.Reference))
		if seen[k] {
			return p.Reference
		}
		seen[k] = true
	}
	return ""
}

// PriceMismatchError carries the server price of the first part whose submitted
// price is off by more than the tolerance.
type PriceMismatchError struct {
	Index     int
	Reference string
	Submitted decimal.Decimal
	Server    pricing.Breakdown
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("part %d (%s): submitted %s, server %s", e.Index+1, e.Reference, e.Submitted.StringFixed(2), e.Server.Total.StringFixed(2))
}

func (e *PriceMismatchError) Is(target error) bool {
	return target == ErrPriceMismatch
}

var priceTolerance = decimal.New(1, -2)

func pricesMatch(submitted, server decimal.Decimal) bool {
	return submitted.Sub(server).Abs().LessThanOrEqual(priceTolerance)
}

// NewNumber formats an order number as CMD-YYMMDD-NNNN.
func NewNumber(now time.Time) string {
	return fmt.Sprintf("CMD-%s-%04d", now.Format("060102"), rand.IntN(10000))
}
