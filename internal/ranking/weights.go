package ranking

// WeightConfig is the immutable coefficient set for one ranking pass.
// One coefficient per behavioral metric channel, plus the discount penalty
// and the novelty (sale-start timing) weight.
//
// A coefficient of 1.0 is neutral for metric channels: the channel neither
// boosts nor suppresses the score. The discount penalty is neutral at 0.0.
// Resolution happens once per pass (latest row of the append-only weight
// log, or NeutralWeights when the log is empty); the value is never mutated
// in place and never shared between passes as mutable state.
type WeightConfig struct {
	Sessions        float64 `json:"sessions_weight"`
	Views           float64 `json:"views_weight"`
	Cart            float64 `json:"cart_weight"`
	Checkout        float64 `json:"checkout_weight"`
	OrdersGross     float64 `json:"orders_gross_weight"`
	OrdersNet       float64 `json:"orders_net_weight"`
	DiscountPenalty float64 `json:"discount_penalty"`
	Novelty         float64 `json:"dnp_weight"`
}

// NeutralWeights returns the documented neutral default configuration:
// every channel weight at 1.0, no discount penalty, novelty at 1.0.
// The engine falls back to this value whenever no configuration has been
// stored, so a missing WeightConfig is never an error.
func NeutralWeights() WeightConfig {
	return WeightConfig{
		Sessions:        1.0,
		Views:           1.0,
		Cart:            1.0,
		Checkout:        1.0,
		OrdersGross:     1.0,
		OrdersNet:       1.0,
		DiscountPenalty: 0.0,
		Novelty:         1.0,
	}
}

// WeightPatch is a partial weight update. Nil fields keep the base value
// for that coefficient. Zero is a meaningful value (it disables a channel),
// so the patch uses pointers rather than treating zero as "unset".
type WeightPatch struct {
	Sessions        *float64 `json:"sessions_weight,omitempty"`
	Views           *float64 `json:"views_weight,omitempty"`
	Cart            *float64 `json:"cart_weight,omitempty"`
	Checkout        *float64 `json:"checkout_weight,omitempty"`
	OrdersGross     *float64 `json:"orders_gross_weight,omitempty"`
	OrdersNet       *float64 `json:"orders_net_weight,omitempty"`
	DiscountPenalty *float64 `json:"discount_penalty,omitempty"`
	Novelty         *float64 `json:"dnp_weight,omitempty"`
}

// Apply overlays the patch onto base and returns the resulting config.
// Base is typically NeutralWeights: a weight update names only the
// coefficients it changes and every other coefficient resets to neutral,
// matching the append-only lifecycle where each log row is complete.
func (p WeightPatch) Apply(base WeightConfig) WeightConfig {
	out := base
	if p.Sessions != nil {
		out.Sessions = *p.Sessions
	}
	if p.Views != nil {
		out.Views = *p.Views
	}
	if p.Cart != nil {
		out.Cart = *p.Cart
	}
	if p.Checkout != nil {
		out.Checkout = *p.Checkout
	}
	if p.OrdersGross != nil {
		out.OrdersGross = *p.OrdersGross
	}
	if p.OrdersNet != nil {
		out.OrdersNet = *p.OrdersNet
	}
	if p.DiscountPenalty != nil {
		out.DiscountPenalty = *p.DiscountPenalty
	}
	if p.Novelty != nil {
		out.Novelty = *p.Novelty
	}
	return out
}
