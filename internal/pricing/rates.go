package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rate keys read by the engine and by order aggregation.
const (
	KeyCutPerCut       = "COUPE_PANNEAU"
	KeyCutMinimum      = "COUPE_MINIMUM"
	KeyEdgeApply       = "POSE_CHANT_ML"
	KeyEdgeApplyLaser  = "POSE_CHANT_LASER_ML"
	KeyDrillHole       = "PERCAGE_UNITAIRE"
	KeyDrillLine       = "PERCAGE_LIGNE_32"
	KeyGroove          = "RAINURE_ML"
	KeyRebate          = "FEUILLURE_ML"
	KeyNotch           = "ENCOCHE_UNITAIRE"
	KeyCutout          = "DECOUPE_UNITAIRE"
	KeyHardware        = "HARDWARE_UNITAIRE"
	KeyFinishVarnish   = "FINISH_VARNISH"
	KeyFinishOil       = "FINISH_OIL"
	KeyFinishWax       = "FINISH_WAX"
	KeyFinishPaint     = "FINISH_PAINT"
	KeyDeliveryBase    = "LIVRAISON_BASE"
	KeyDeliveryPerKm   = "LIVRAISON_KM"
	KeyDeliveryExpress = "LIVRAISON_EXPRESS"
)

// EngineKeys lists every key Calculate resolves on each priced computation.
var EngineKeys = []string{
	KeyCutPerCut,
	KeyCutMinimum,
	KeyEdgeApply,
	KeyEdgeApplyLaser,
	KeyDrillHole,
	KeyDrillLine,
	KeyGroove,
	KeyRebate,
	KeyNotch,
	KeyCutout,
	KeyHardware,
	KeyFinishVarnish,
	KeyFinishOil,
	KeyFinishWax,
	KeyFinishPaint,
}

var (
	// ErrMissingRate is returned when a referenced key is absent from the rate table.
	ErrMissingRate = errors.New("missing rate")
	// ErrInvalidRate is returned when a referenced rate is negative.
	ErrInvalidRate = errors.New("invalid rate")
)

// RateTable is an immutable snapshot of the price list, keyed by rate key.
type RateTable map[string]decimal.Decimal

// Get returns the value for key, failing on absent or negative values.
func (t RateTable) Get(key string) (decimal.Decimal, error) {
	v, ok := t[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingRate, key)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative (%s)", ErrInvalidRate, key, v.String())
	}
	return v, nil
}

// Missing returns the keys absent from the table, sorted.
func (t RateTable) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := t[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// Check verifies that every key resolves to a non-negative value.
func (t RateTable) Check(keys ...string) error {
	if missing := t.Missing(keys...); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRate, strings.Join(missing, ", "))
	}
	for _, k := range keys {
		if _, err := t.Get(k); err != nil {
			return err
		}
	}
	return nil
}

// engineRates holds resolved values so Calculate never touches the map twice.
type engineRates struct {
	cutPerCut      decimal.Decimal
	cutMinimum     decimal.Decimal
	edgeApply      decimal.Decimal
	edgeApplyLaser decimal.Decimal
	drillHole      decimal.Decimal
	drillLine      decimal.Decimal
	groove         decimal.Decimal
	rebate         decimal.Decimal
	notch          decimal.Decimal
	cutout         decimal.Decimal
	hardware       decimal.Decimal
	finish         map[FinishType]decimal.Decimal
}

func resolveRates(t RateTable) (engineRates, error) {
	if err := t.Check(EngineKeys...); err != nil {
		return engineRates{}, err
	}
	return engineRates{
		cutPerCut:      t[KeyCutPerCut],
		cutMinimum:     t[KeyCutMinimum],
		edgeApply:      t[KeyEdgeApply],
		edgeApplyLaser: t[KeyEdgeApplyLaser],
		drillHole:      t[KeyDrillHole],
		drillLine:      t[KeyDrillLine],
		groove:         t[KeyGroove],
		rebate:         t[KeyRebate],
		notch:          t[KeyNotch],
		cutout:         t[KeyCutout],
		hardware:       t[KeyHardware],
		finish: map[FinishType]decimal.Decimal{
			FinishVarnish: t[KeyFinishVarnish],
			FinishOil:     t[KeyFinishOil],
			FinishWax:     t[KeyFinishWax],
			FinishPaint:   t[KeyFinishPaint],
		},
	}, nil
}
