package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Mode selects which of the two historical scoring formulas the engine uses.
// The repository's source revisions carried both; they are incompatible, so
// the active formula is an explicit engine configuration and is never blended.
type Mode string

const (
	// ModeMultiplicative starts from a base of 1.0 and scales it per channel:
	// score *= 1 + (weight-1) * (value/scale). Under all-neutral weights every
	// factor is exactly 1, so this mode only separates products once a curator
	// has moved a weight off 1.0.
	ModeMultiplicative Mode = "multiplicative"

	// ModeAdditive builds a weighted sum of funnel conversion rates plus
	// per-order contributions, starting from a base of 0.0. Discriminates
	// between products even at neutral weights. Default.
	ModeAdditive Mode = "additive"
)

// ChannelScales holds the fixed normalizing constant per metric channel.
// Dividing the raw count by its scale maps typical magnitudes into a
// comparable range before the channel weight is applied.
type ChannelScales struct {
	Sessions    float64 `json:"sessions"`
	Views       float64 `json:"views"`
	Cart        float64 `json:"cart"`
	Checkout    float64 `json:"checkout"`
	OrdersGross float64 `json:"orders_gross"`
	OrdersNet   float64 `json:"orders_net"`
}

// Params is the engine calibration: scoring mode, channel scales, penalty
// and bonus caps, the novelty horizon, and display rounding precision.
type Params struct {
	Mode               Mode          `json:"mode"`
	Scales             ChannelScales `json:"scales"`
	DiscountCap        float64       `json:"discount_cap"`
	NoveltyCap         float64       `json:"novelty_cap"`
	NoveltyHorizonDays float64       `json:"novelty_horizon_days"`
	Precision          int           `json:"precision"`
}

// CalibrationConfig is the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string `json:"version"`
	Params  Params `json:"params"`
}

// DefaultParams returns the default engine calibration.
//
// The default mode is the additive conversion model, which produces a useful
// ordering straight from the behavioral metrics before any weight has been
// tuned. The scales carry over from the historical formulas: sessions and
// views per 100, cart additions and checkout starts per 10, orders per 5.
// Both the discount penalty and the novelty adjustment are capped at 50% so
// neither can collapse a score to zero. The novelty adjustment saturates
// after one year. Display scores round to 2 decimal places.
func DefaultParams() *Params {
	return &Params{
		Mode: ModeAdditive,
		Scales: ChannelScales{
			Sessions:    100,
			Views:       100,
			Cart:        10,
			Checkout:    10,
			OrdersGross: 5,
			OrdersNet:   5,
		},
		DiscountCap:        0.5,
		NoveltyCap:         0.5,
		NoveltyHorizonDays: 365,
		Precision:          2,
	}
}

// Validate checks that the params describe a usable engine configuration.
func (p *Params) Validate() error {
	if p.Mode != ModeMultiplicative && p.Mode != ModeAdditive {
		return fmt.Errorf("unknown scoring mode %q", p.Mode)
	}
	scales := []struct {
		name  string
		value float64
	}{
		{"sessions", p.Scales.Sessions},
		{"views", p.Scales.Views},
		{"cart", p.Scales.Cart},
		{"checkout", p.Scales.Checkout},
		{"orders_gross", p.Scales.OrdersGross},
		{"orders_net", p.Scales.OrdersNet},
	}
	for _, s := range scales {
		if s.value <= 0 {
			return fmt.Errorf("channel scale %s must be > 0 (got %g)", s.name, s.value)
		}
	}
	if p.DiscountCap < 0 || p.DiscountCap >= 1 {
		return fmt.Errorf("discount_cap must be in [0, 1) (got %g)", p.DiscountCap)
	}
	if p.NoveltyCap < 0 || p.NoveltyCap >= 1 {
		return fmt.Errorf("novelty_cap must be in [0, 1) (got %g)", p.NoveltyCap)
	}
	if p.NoveltyHorizonDays <= 0 {
		return fmt.Errorf("novelty_horizon_days must be > 0 (got %g)", p.NoveltyHorizonDays)
	}
	if p.Precision < 0 {
		return fmt.Errorf("precision must be >= 0 (got %d)", p.Precision)
	}
	return nil
}

// LoadCalibration loads engine params from a JSON calibration file.
// An empty path returns the defaults. Partial files are merged onto the
// defaults so a calibration file only needs to name the values it changes.
// On read or parse errors the defaults are returned alongside the error so
// callers can degrade gracefully.
func LoadCalibration(filePath string) (*Params, error) {
	if filePath == "" {
		return DefaultParams(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultParams(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultParams(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultParams()
	merged := MergeCalibration(defaults, &config.Params)
	if err := merged.Validate(); err != nil {
		slog.Warn("invalid calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultParams(), fmt.Errorf("invalid calibration: %w", err)
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override params onto base. Only non-zero values
// from the override are applied, which allows partial calibration files.
func MergeCalibration(base *Params, override *Params) *Params {
	if base == nil {
		return DefaultParams()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.Scales.Sessions != 0 {
		result.Scales.Sessions = override.Scales.Sessions
	}
	if override.Scales.Views != 0 {
		result.Scales.Views = override.Scales.Views
	}
	if override.Scales.Cart != 0 {
		result.Scales.Cart = override.Scales.Cart
	}
	if override.Scales.Checkout != 0 {
		result.Scales.Checkout = override.Scales.Checkout
	}
	if override.Scales.OrdersGross != 0 {
		result.Scales.OrdersGross = override.Scales.OrdersGross
	}
	if override.Scales.OrdersNet != 0 {
		result.Scales.OrdersNet = override.Scales.OrdersNet
	}
	if override.DiscountCap != 0 {
		result.DiscountCap = override.DiscountCap
	}
	if override.NoveltyCap != 0 {
		result.NoveltyCap = override.NoveltyCap
	}
	if override.NoveltyHorizonDays != 0 {
		result.NoveltyHorizonDays = override.NoveltyHorizonDays
	}
	if override.Precision != 0 {
		result.Precision = override.Precision
	}

	return &result
}

// logCalibrationOverrides logs which params were overridden from defaults.
func logCalibrationOverrides(defaults *Params, loaded *Params) {
	var overrides []string

	if loaded.Mode != defaults.Mode {
		overrides = append(overrides, fmt.Sprintf("mode: %s -> %s", defaults.Mode, loaded.Mode))
	}
	if loaded.Scales != defaults.Scales {
		overrides = append(overrides, fmt.Sprintf("scales: %+v -> %+v", defaults.Scales, loaded.Scales))
	}
	if loaded.DiscountCap != defaults.DiscountCap {
		overrides = append(overrides, fmt.Sprintf("discount_cap: %.2f -> %.2f",
			defaults.DiscountCap, loaded.DiscountCap))
	}
	if loaded.NoveltyCap != defaults.NoveltyCap {
		overrides = append(overrides, fmt.Sprintf("novelty_cap: %.2f -> %.2f",
			defaults.NoveltyCap, loaded.NoveltyCap))
	}
	if loaded.NoveltyHorizonDays != defaults.NoveltyHorizonDays {
		overrides = append(overrides, fmt.Sprintf("novelty_horizon_days: %.0f -> %.0f",
			defaults.NoveltyHorizonDays, loaded.NoveltyHorizonDays))
	}
	if loaded.Precision != defaults.Precision {
		overrides = append(overrides, fmt.Sprintf("precision: %d -> %d",
			defaults.Precision, loaded.Precision))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
