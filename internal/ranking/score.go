package ranking

import (
	"math"
	"time"
)

// Sale-start date formats tried in order: day-month-year first (the feed
// format), then ISO year-month-day.
var saleStartFormats = []string{"02.01.2006", "2006-01-02"}

// saleStartSentinel marks the far-past placeholder date the feed uses for
// products with no known sale start. Dates at or before it carry no timing
// information, so no novelty adjustment applies.
var saleStartSentinel = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Metrics holds the behavioral metric channels for one product.
// All counts are non-negative; absent channels default to zero.
type Metrics struct {
	Sessions       int64 `json:"sessions"`
	Views          int64 `json:"product_views"`
	CartAdditions  int64 `json:"cart_additions"`
	CheckoutStarts int64 `json:"checkout_starts"`
	OrdersGross    int64 `json:"orders_gross"`
	OrdersNet      int64 `json:"orders_net"`
}

// Candidate is one product as seen by the engine: the scoring input plus an
// optional curator position for the category being ranked.
type Candidate struct {
	SKU         string
	Metrics     Metrics
	DiscountPct float64
	SaleStart   string // raw date string from the catalog; parsed here
	Available   bool
	Position    *int // manual override position, nil when not curated
}

// Calculator computes product scores from metrics and a weight
// configuration. It is a pure function of its inputs: no I/O, no shared
// state, deterministic for a fixed reference time.
type Calculator struct {
	params Params
}

// NewCalculator creates a Calculator with the given calibration.
func NewCalculator(params Params) *Calculator {
	return &Calculator{params: params}
}

// Params returns the calibration the calculator was built with.
func (c *Calculator) Params() Params {
	return c.params
}

// Score computes the unrounded score for one candidate using the current
// time as the novelty reference. Use Round for the display value.
func (c *Calculator) Score(in Candidate, w WeightConfig) float64 {
	return c.ScoreAt(in, w, time.Now().UTC())
}

// ScoreAt computes the unrounded score for one candidate with an explicit
// reference time, which keeps the novelty adjustment testable.
//
// The base score depends on the configured mode (see Mode). The discount
// penalty and the sale-timing adjustment then apply as bounded multipliers
// in both modes, so the score can never be driven below zero by a discount
// or an old sale date.
func (c *Calculator) ScoreAt(in Candidate, w WeightConfig, now time.Time) float64 {
	var score float64
	switch c.params.Mode {
	case ModeMultiplicative:
		score = c.multiplicativeBase(in.Metrics, w)
	default:
		score = c.additiveBase(in.Metrics, w)
	}

	score *= c.discountFactor(in.DiscountPct, w)
	score *= c.noveltyFactor(in.SaleStart, in.Available, w, now)

	return score
}

// Round rounds a score to the calibrated display precision. Internal
// comparisons use unrounded values to avoid manufacturing ties.
func (c *Calculator) Round(score float64) float64 {
	pow := math.Pow(10, float64(c.params.Precision))
	return math.Round(score*pow) / pow
}

// multiplicativeBase starts from a neutral base of 1.0 and scales it once
// per non-zero channel: score *= 1 + (weight-1) * (count/scale). A product
// with all-zero metrics scores exactly 1.0 under any weight configuration.
func (c *Calculator) multiplicativeBase(m Metrics, w WeightConfig) float64 {
	score := 1.0
	channels := []struct {
		count  int64
		weight float64
		scale  float64
	}{
		{m.Sessions, w.Sessions, c.params.Scales.Sessions},
		{m.Views, w.Views, c.params.Scales.Views},
		{m.CartAdditions, w.Cart, c.params.Scales.Cart},
		{m.CheckoutStarts, w.Checkout, c.params.Scales.Checkout},
		{m.OrdersGross, w.OrdersGross, c.params.Scales.OrdersGross},
		{m.OrdersNet, w.OrdersNet, c.params.Scales.OrdersNet},
	}
	for _, ch := range channels {
		if ch.count == 0 {
			continue
		}
		factor := 1 + (ch.weight-1)*(float64(ch.count)/ch.scale)
		// A heavily down-weighted channel with a large count could push its
		// factor negative; floor at zero so every factor stays monotone in
		// its weight and the score stays non-negative.
		if factor < 0 {
			factor = 0
		}
		score *= factor
	}
	return score
}

// additiveBase is the conversion-weighted model: a weighted sum of funnel
// conversion rates plus per-order contributions, from a neutral base of 0.0.
// Ratios with a zero denominator contribute zero, never an error.
func (c *Calculator) additiveBase(m Metrics, w WeightConfig) float64 {
	score := 0.0
	score += ratio(m.Views, m.Sessions) * w.Sessions
	score += ratio(m.CartAdditions, m.Views) * w.Views
	score += ratio(m.CheckoutStarts, m.CartAdditions) * w.Cart
	score += ratio(m.OrdersGross, m.CheckoutStarts) * w.Checkout
	score += float64(m.OrdersGross) / c.params.Scales.OrdersGross * w.OrdersGross
	score += float64(m.OrdersNet) / c.params.Scales.OrdersNet * w.OrdersNet
	return score
}

// ratio returns num/den, or 0 when the denominator is zero.
func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// discountFactor converts the discount percentage into a bounded score
// multiplier: 1 - min(cap, pct/100 * penaltyWeight). Negative penalty
// weights are treated as zero; the discount percentage is clamped to
// [0, 100] before use.
func (c *Calculator) discountFactor(pct float64, w WeightConfig) float64 {
	penalty := w.DiscountPenalty
	if penalty <= 0 {
		return 1.0
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	reduction := pct / 100 * penalty
	if reduction > c.params.DiscountCap {
		reduction = c.params.DiscountCap
	}
	return 1 - reduction
}

// noveltyFactor computes the sale-timing multiplier from the raw sale-start
// date. Unparseable or sentinel dates skip the adjustment entirely. A past
// date earns a penalty growing linearly with days elapsed; a future date on
// an available product earns a bonus growing linearly with days remaining.
// Both saturate at NoveltyCap over the novelty horizon and scale with the
// novelty weight. Same-day is neutral.
func (c *Calculator) noveltyFactor(rawDate string, available bool, w WeightConfig, now time.Time) float64 {
	saleStart, ok := parseSaleStart(rawDate)
	if !ok {
		return 1.0
	}

	days := now.Truncate(24*time.Hour).Sub(saleStart).Hours() / 24
	switch {
	case days > 0:
		return 1 - c.noveltyMagnitude(days, w.Novelty)
	case days < 0 && available:
		return 1 + c.noveltyMagnitude(-days, w.Novelty)
	default:
		return 1.0
	}
}

// noveltyMagnitude maps elapsed (or remaining) days onto [0, NoveltyCap]:
// linear over the horizon, scaled by the novelty weight, capped after.
func (c *Calculator) noveltyMagnitude(days, noveltyWeight float64) float64 {
	if noveltyWeight < 0 {
		noveltyWeight = 0
	}
	m := c.params.NoveltyCap * (days / c.params.NoveltyHorizonDays) * noveltyWeight
	if m > c.params.NoveltyCap {
		m = c.params.NoveltyCap
	}
	return m
}

// parseSaleStart tries each supported date format in order. It reports
// false for empty input, placeholders, unparseable values, and dates at or
// before the far-past sentinel.
func parseSaleStart(raw string) (time.Time, bool) {
	if raw == "" || raw == "-" {
		return time.Time{}, false
	}
	for _, format := range saleStartFormats {
		t, err := time.Parse(format, raw)
		if err != nil {
			continue
		}
		if !t.After(saleStartSentinel) {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
