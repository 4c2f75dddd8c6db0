package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownEdge is returned when a side references an edge missing from the lookup.
	ErrUnknownEdge = errors.New("unknown edge banding")
)

// PanelInfo is the catalog data the engine needs about the selected panel.
type PanelInfo struct {
	PricePerM2  decimal.Decimal
	ThicknessMM decimal.Decimal
	Grain       bool
}

// EdgeInfo is the catalog data the engine needs about one edge banding.
type EdgeInfo struct {
	PricePerMeter decimal.Decimal
	Laser         bool
}

// Breakdown is the itemized price of one part line. Every field is rounded to
// cents and Total is the sum of the rounded components.
type Breakdown struct {
	Panel     decimal.Decimal `json:"panel"`
	Cutting   decimal.Decimal `json:"cutting"`
	Edges     decimal.Decimal `json:"edges"`
	Drilling  decimal.Decimal `json:"drilling"`
	Hardware  decimal.Decimal `json:"hardware"`
	Machining decimal.Decimal `json:"machining"`
	Finish    decimal.Decimal `json:"finish"`
	Total     decimal.Decimal `json:"total"`
}

// Sum adds the seven components.
func (b Breakdown) Sum() decimal.Decimal {
	return decimal.Sum(b.Panel, b.Cutting, b.Edges, b.Drilling, b.Hardware, b.Machining, b.Finish)
}

// IsZero reports whether nothing is priced yet.
func (b Breakdown) IsZero() bool {
	return b.Sum().IsZero() && b.Total.IsZero()
}

// Equal compares every field numerically.
func (b Breakdown) Equal(o Breakdown) bool {
	return b.Panel.Equal(o.Panel) &&
		b.Cutting.Equal(o.Cutting) &&
		b.Edges.Equal(o.Edges) &&
		b.Drilling.Equal(o.Drilling) &&
		b.Hardware.Equal(o.Hardware) &&
		b.Machining.Equal(o.Machining) &&
		b.Finish.Equal(o.Finish) &&
		b.Total.Equal(o.Total)
}

func (b Breakdown) rounded() Breakdown {
	r := Breakdown{
		Panel:     b.Panel.Round(2),
		Cutting:   b.Cutting.Round(2),
		Edges:     b.Edges.Round(2),
		Drilling:  b.Drilling.Round(2),
		Hardware:  b.Hardware.Round(2),
		Machining: b.Machining.Round(2),
		Finish:    b.Finish.Round(2),
	}
	r.Total = r.Sum()
	return r
}

// Calculate prices one part line. A part without a panel, or without panel info,
// is not priceable yet and yields a zero breakdown with no error; the same holds for
// zero dimensions. Rate problems and dangling edge references are errors.
func Calculate(part Part, panel *PanelInfo, edges map[string]EdgeInfo, rates RateTable) (Breakdown, error) {
	if part.PanelID == "" || panel == nil {
		return Breakdown{}, nil
	}
	if part.Quantity < 0 || part.Length < 0 || part.Width < 0 {
		return Breakdown{}, fmt.Errorf("%w: negative quantity or dimension", ErrInvalidPart)
	}
	if part.Length == 0 || part.Width == 0 {
		return Breakdown{}, nil
	}

	r, err := resolveRates(rates)
	if err != nil {
		return Breakdown{}, err
	}

	quantity := part.Quantity
	if quantity == 0 {
		quantity = 1
	}
	q := decimal.NewFromInt(int64(quantity))

	var b Breakdown

	b.Panel = SurfaceM2(part.Length, part.Width).Mul(panel.PricePerM2).Mul(q)

	// Two cuts per piece; the minimum applies to the whole line.
	b.Cutting = decimal.Max(r.cutPerCut.Mul(two).Mul(q), r.cutMinimum)

	if b.Edges, err = edgeCost(part, edges, r, q); err != nil {
		return Breakdown{}, err
	}

	b.Drilling = drillingCost(part, r, q)
	b.Hardware = r.hardware.Mul(decimal.NewFromInt(int64(len(part.HardwareDrillings)))).Mul(q)

	if b.Machining, err = machiningCost(part, r, q); err != nil {
		return Breakdown{}, err
	}

	if part.Finish != nil {
		m, err := finishMultiplier(part.Finish.Type, r)
		if err != nil {
			return Breakdown{}, err
		}
		b.Finish = b.Panel.Mul(m.Sub(decimal.NewFromInt(1)))
	}

	return b.rounded(), nil
}

func edgeCost(part Part, edges map[string]EdgeInfo, r engineRates, q decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[Side]bool, len(Sides))
	for _, sel := range part.Edges {
		if !sel.Position.valid() {
			return decimal.Zero, fmt.Errorf("%w: unknown side %q", ErrInvalidPart, sel.Position)
		}
		if seen[sel.Position] {
			return decimal.Zero, fmt.Errorf("%w: side %s listed twice", ErrInvalidPart, sel.Position)
		}
		seen[sel.Position] = true
		if sel.EdgeID == "" {
			continue
		}
		info, ok := edges[sel.EdgeID]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrUnknownEdge, sel.EdgeID, sel.Position)
		}
		ml := Meters(SideLength(sel.Position, part.Length, part.Width)).Mul(q)
		apply := r.edgeApply
		if info.Laser {
			apply = r.edgeApplyLaser
		}
		total = total.Add(ml.Mul(apply)).Add(ml.Mul(info.PricePerMeter))
	}
	return total, nil
}

func drillingCost(part Part, r engineRates, q decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, line := range part.DrillingLines {
		holes := decimal.NewFromInt(int64(line.Count))
		total = total.Add(r.drillLine.Mul(q)).Add(holes.Mul(r.drillHole).Mul(q))
	}
	points := decimal.NewFromInt(int64(len(part.DrillingPoints)))
	return total.Add(points.Mul(r.drillHole).Mul(q))
}

func machiningCost(part Part, r engineRates, q decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, op := range part.MachiningOperations {
		switch op.Type {
		case MachiningGroove:
			// Grooves are charged over the full part length.
			total = total.Add(Meters(part.Length).Mul(r.groove).Mul(q))
		case MachiningRebate:
			sides, err := RebateSides(op)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(RebateMeters(part.Length, part.Width, sides).Mul(r.rebate).Mul(q))
		case MachiningNotch:
			total = total.Add(r.notch.Mul(q))
		case MachiningCutout:
			total = total.Add(r.cutout.Mul(q))
		default:
			return decimal.Zero, fmt.Errorf("%w: machining type %q", ErrInvalidPart, op.Type)
		}
	}
	return total, nil
}

func finishMultiplier(t FinishType, r engineRates) (decimal.Decimal, error) {
	if t == FinishNone || t == "" {
		return decimal.NewFromInt(1), nil
	}
	m, ok := r.finish[t]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: finish type %q", ErrInvalidPart, t)
	}
	if m.LessThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w: finish multiplier for %s below 1 (%s)", ErrInvalidRate, t, m.String())
	}
	return m, nil
}
