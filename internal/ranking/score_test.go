package ranking

import (
	"math"
	"testing"
	"time"
)

// fixedNow is the reference time used by scoring tests so novelty
// adjustments are deterministic.
var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// multiplicativeCalc pins the multiplicative mode, where a zero-metric
// candidate scores a known base of 1.0. The discount and novelty tests use
// it so the bounded multipliers can be asserted directly.
func multiplicativeCalc() *Calculator {
	params := DefaultParams()
	params.Mode = ModeMultiplicative
	return NewCalculator(*params)
}

func TestScoreAllZeroMetricsEqualsBase(t *testing.T) {
	weightSets := []struct {
		name    string
		weights WeightConfig
	}{
		{"neutral", NeutralWeights()},
		{"heavy views", WeightConfig{Sessions: 1, Views: 5, Cart: 1, Checkout: 1, OrdersGross: 1, OrdersNet: 1, Novelty: 1}},
		{"disabled channels", WeightConfig{Novelty: 1}},
	}

	tests := []struct {
		name string
		mode Mode
		base float64
	}{
		{"multiplicative base is 1.0", ModeMultiplicative, 1.0},
		{"additive base is 0.0", ModeAdditive, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			params.Mode = tt.mode
			calc := NewCalculator(*params)

			for _, ws := range weightSets {
				got := calc.ScoreAt(Candidate{SKU: "A-1"}, ws.weights, fixedNow)
				if !almostEqual(got, tt.base) {
					t.Errorf("weights %q: expected base %f, got %f", ws.name, tt.base, got)
				}
			}
		})
	}
}

func TestScoreChannelWeightMonotonicity(t *testing.T) {
	cand := Candidate{
		SKU: "A-1",
		Metrics: Metrics{
			Sessions:       80,
			Views:          60,
			CartAdditions:  8,
			CheckoutStarts: 4,
			OrdersGross:    3,
			OrdersNet:      2,
		},
	}

	// Bump each channel weight in turn; the score must never decrease for a
	// product with positive usage in that channel.
	bumps := []struct {
		name string
		bump func(w *WeightConfig, delta float64)
	}{
		{"sessions", func(w *WeightConfig, d float64) { w.Sessions += d }},
		{"views", func(w *WeightConfig, d float64) { w.Views += d }},
		{"cart", func(w *WeightConfig, d float64) { w.Cart += d }},
		{"checkout", func(w *WeightConfig, d float64) { w.Checkout += d }},
		{"orders_gross", func(w *WeightConfig, d float64) { w.OrdersGross += d }},
		{"orders_net", func(w *WeightConfig, d float64) { w.OrdersNet += d }},
	}

	for _, mode := range []Mode{ModeMultiplicative, ModeAdditive} {
		params := DefaultParams()
		params.Mode = mode
		calc := NewCalculator(*params)

		for _, b := range bumps {
			t.Run(string(mode)+"/"+b.name, func(t *testing.T) {
				prev := math.Inf(-1)
				for delta := 0.0; delta <= 3.0; delta += 0.25 {
					w := NeutralWeights()
					b.bump(&w, delta)
					got := calc.ScoreAt(cand, w, fixedNow)
					if got < prev-1e-9 {
						t.Fatalf("score decreased from %f to %f at weight delta %f", prev, got, delta)
					}
					prev = got
				}
			})
		}
	}
}

func TestScoreDiscountPenalty(t *testing.T) {
	calc := multiplicativeCalc()

	tests := []struct {
		name     string
		pct      float64
		penalty  float64
		expected float64 // expected multiplier applied to the base
	}{
		{"no penalty weight", 80, 0, 1.0},
		{"negative penalty weight treated as zero", 80, -2, 1.0},
		{"half discount half weight", 50, 0.5, 0.75},
		{"full discount full weight hits the cap", 100, 1.0, 0.5},
		{"cap bounds extreme weights", 100, 25, 0.5},
		{"discount clamped to 100", 400, 1.0, 0.5},
		{"negative discount clamped to zero", -10, 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NeutralWeights()
			w.DiscountPenalty = tt.penalty
			got := calc.ScoreAt(Candidate{SKU: "A-1", DiscountPct: tt.pct}, w, fixedNow)
			if !almostEqual(got, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
			if got < 0 {
				t.Errorf("discount drove score negative: %f", got)
			}
		})
	}
}

func TestScoreDiscountNeverNegative(t *testing.T) {
	calc := multiplicativeCalc()
	for pct := 0.0; pct <= 100; pct += 10 {
		for penalty := 0.0; penalty <= 10; penalty += 0.5 {
			w := NeutralWeights()
			w.DiscountPenalty = penalty
			got := calc.ScoreAt(Candidate{SKU: "A-1", DiscountPct: pct}, w, fixedNow)
			if got < 0.5-1e-9 {
				t.Fatalf("pct=%f penalty=%f: score %f below the capped floor", pct, penalty, got)
			}
		}
	}
}

func TestScoreNoveltyAdjustment(t *testing.T) {
	calc := multiplicativeCalc()

	tests := []struct {
		name      string
		saleStart string
		available bool
		expected  float64
	}{
		{"empty date skips adjustment", "", true, 1.0},
		{"dash placeholder skips adjustment", "-", true, 1.0},
		{"garbage date skips adjustment", "not-a-date", true, 1.0},
		{"far-past sentinel skips adjustment", "01.01.2000", true, 1.0},
		{"same day is neutral", "15.06.2024", true, 1.0},
		// 73 elapsed days of a 365-day horizon: penalty 0.5 * 73/365 = 0.1
		{"past date penalized, dmy format", "03.04.2024", true, 0.9},
		{"past date penalized, iso format", "2024-04-03", true, 0.9},
		// 73 remaining days: bonus 0.1 for available products only
		{"future date rewarded when available", "27.08.2024", true, 1.1},
		{"future date ignored when unavailable", "27.08.2024", false, 1.0},
		// Past the horizon the penalty saturates at the cap
		{"ancient sale date capped", "15.06.2020", true, 0.5},
		{"distant future capped", "2030-01-01", true, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.ScoreAt(Candidate{
				SKU:       "A-1",
				SaleStart: tt.saleStart,
				Available: tt.available,
			}, NeutralWeights(), fixedNow)
			if !almostEqual(got, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestScoreNoveltyScalesWithWeight(t *testing.T) {
	calc := multiplicativeCalc()

	w := NeutralWeights()
	w.Novelty = 2.0
	// 73 elapsed days doubled: penalty 0.2
	got := calc.ScoreAt(Candidate{SKU: "A-1", SaleStart: "03.04.2024"}, w, fixedNow)
	if !almostEqual(got, 0.8) {
		t.Errorf("expected 0.8, got %f", got)
	}

	// The cap still bounds the scaled penalty.
	w.Novelty = 100
	got = calc.ScoreAt(Candidate{SKU: "A-1", SaleStart: "03.04.2024"}, w, fixedNow)
	if !almostEqual(got, 0.5) {
		t.Errorf("expected capped 0.5, got %f", got)
	}

	// Novelty weight zero disables the adjustment.
	w.Novelty = 0
	got = calc.ScoreAt(Candidate{SKU: "A-1", SaleStart: "03.04.2024"}, w, fixedNow)
	if !almostEqual(got, 1.0) {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestScoreMultiplicativeChannels(t *testing.T) {
	calc := multiplicativeCalc()

	w := NeutralWeights()
	w.Views = 2.0
	w.Cart = 1.5

	// views: 1 + (2-1)*(50/100) = 1.5; cart: 1 + (0.5)*(5/10) = 1.25
	got := calc.ScoreAt(Candidate{
		SKU:     "A-1",
		Metrics: Metrics{Views: 50, CartAdditions: 5},
	}, w, fixedNow)
	if !almostEqual(got, 1.5*1.25) {
		t.Errorf("expected %f, got %f", 1.5*1.25, got)
	}
}

func TestScoreMultiplicativeFactorFloorsAtZero(t *testing.T) {
	calc := multiplicativeCalc()

	// views weight 0 with views=200 would make the raw factor 1-2 = -1;
	// the floor keeps the score at zero instead of flipping its sign.
	w := NeutralWeights()
	w.Views = 0

	got := calc.ScoreAt(Candidate{
		SKU:     "A-1",
		Metrics: Metrics{Views: 200, OrdersGross: 4},
	}, w, fixedNow)
	if got < 0 {
		t.Errorf("score went negative: %f", got)
	}
}

// Neutral weights must still yield a usable ordering under the default
// calibration: a product with more behavioral activity at every funnel stage
// outscores a quieter one without any weight having been tuned.
func TestScoreNeutralWeightsSeparateProducts(t *testing.T) {
	calc := NewCalculator(*DefaultParams())
	w := NeutralWeights()

	hot := Candidate{
		SKU:     "A-1",
		Metrics: Metrics{Sessions: 300, Views: 250, CartAdditions: 40, CheckoutStarts: 20, OrdersGross: 15, OrdersNet: 14},
	}
	mid := Candidate{
		SKU:     "B-1",
		Metrics: Metrics{Sessions: 100, Views: 60, CartAdditions: 10, OrdersGross: 2, OrdersNet: 2},
	}
	cold := Candidate{
		SKU:     "C-1",
		Metrics: Metrics{Sessions: 10, Views: 5},
	}

	hotScore := calc.ScoreAt(hot, w, fixedNow)
	midScore := calc.ScoreAt(mid, w, fixedNow)
	coldScore := calc.ScoreAt(cold, w, fixedNow)

	if !(hotScore > midScore && midScore > coldScore) {
		t.Errorf("neutral weights did not separate products: hot=%f mid=%f cold=%f",
			hotScore, midScore, coldScore)
	}
}

func TestScoreAdditiveConversionModel(t *testing.T) {
	params := DefaultParams()
	params.Mode = ModeAdditive
	calc := NewCalculator(*params)

	cand := Candidate{
		SKU: "A-1",
		Metrics: Metrics{
			Sessions:       100,
			Views:          50,
			CartAdditions:  10,
			CheckoutStarts: 5,
			OrdersGross:    4,
			OrdersNet:      3,
		},
	}

	// view rate 0.5 + cart rate 0.2 + checkout rate 0.5 + order rate 0.8
	// + 4/5 gross + 3/5 net, all at neutral weight 1.0
	expected := 0.5 + 0.2 + 0.5 + 0.8 + 0.8 + 0.6
	got := calc.ScoreAt(cand, NeutralWeights(), fixedNow)
	if !almostEqual(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
}

func TestScoreAdditiveZeroDenominators(t *testing.T) {
	params := DefaultParams()
	params.Mode = ModeAdditive
	calc := NewCalculator(*params)

	// Views without sessions, orders without checkouts: every zero
	// denominator contributes zero, never an error.
	got := calc.ScoreAt(Candidate{
		SKU:     "A-1",
		Metrics: Metrics{Views: 40, OrdersGross: 5},
	}, NeutralWeights(), fixedNow)

	expected := 0.0 + 5.0/5.0 // only the per-order contribution survives
	if !almostEqual(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
}

func TestRound(t *testing.T) {
	calc := NewCalculator(*DefaultParams())
	tests := []struct {
		in  float64
		out float64
	}{
		{1.006, 1.01},
		{1.004, 1.0},
		{0.994999, 0.99},
		{2.0, 2.0},
	}
	for _, tt := range tests {
		if got := calc.Round(tt.in); !almostEqual(got, tt.out) {
			t.Errorf("Round(%f): expected %f, got %f", tt.in, tt.out, got)
		}
	}
}

func TestParseSaleStart(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		want time.Time
	}{
		{"14.02.2024", true, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)},
		{"2024-02-14", true, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)},
		{"01.01.2000", false, time.Time{}},
		{"1999-06-01", false, time.Time{}},
		{"", false, time.Time{}},
		{"-", false, time.Time{}},
		{"14/02/2024", false, time.Time{}},
	}
	for _, tt := range tests {
		got, ok := parseSaleStart(tt.raw)
		if ok != tt.ok {
			t.Errorf("parseSaleStart(%q): expected ok=%v, got %v", tt.raw, tt.ok, ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parseSaleStart(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestWeightPatchApply(t *testing.T) {
	zero := 0.0
	two := 2.0

	patch := WeightPatch{Views: &zero, DiscountPenalty: &two}
	got := patch.Apply(NeutralWeights())

	if got.Views != 0 {
		t.Errorf("expected views weight 0, got %f", got.Views)
	}
	if got.DiscountPenalty != 2 {
		t.Errorf("expected discount penalty 2, got %f", got.DiscountPenalty)
	}
	// Unpatched fields keep the neutral defaults.
	if got.Sessions != 1 || got.Cart != 1 || got.Novelty != 1 {
		t.Errorf("unpatched fields changed: %+v", got)
	}
}
