package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	four = decimal.NewFromInt(4)
	two  = decimal.NewFromInt(2)
)

// Meters converts a length in mm to metres without loss.
func Meters(mm int) decimal.Decimal {
	return decimal.New(int64(mm), -3)
}

// SurfaceM2 returns the face area of one piece in square metres.
func SurfaceM2(length, width int) decimal.Decimal {
	return Meters(length).Mul(Meters(width))
}

// SideLength returns the banding run of a side in mm. Top and bottom follow the
// length, left and right follow the width.
func SideLength(side Side, length, width int) int {
	switch side {
	case SideTop, SideBottom:
		return length
	case SideLeft, SideRight:
		return width
	}
	return 0
}

// RebateSides reads the number of rebated sides from a rebate's position data.
// A missing value means the full perimeter; anything else must be a whole
// number from 1 to 4.
func RebateSides(op MachiningOperation) (int, error) {
	raw, ok := op.Position["sides"]
	if !ok {
		return 4, nil
	}
	if raw != math.Trunc(raw) || raw < 1 || raw > 4 {
		return 0, fmt.Errorf("%w: rebate sides %v not a whole number between 1 and 4", ErrInvalidPart, raw)
	}
	return int(raw), nil
}

// RebateMeters returns the rebated run in metres: the perimeter scaled by sides/4.
func RebateMeters(length, width, sides int) decimal.Decimal {
	perimeter := Meters(length).Mul(two).Add(Meters(width).Mul(two))
	return perimeter.Mul(decimal.NewFromInt(int64(sides))).Div(four)
}
