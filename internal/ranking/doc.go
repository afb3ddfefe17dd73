// Package ranking provides the product wall scoring and ranking engine
// with calibration support for the storefront merchandising surface.
//
// Basic Usage:
//
//	// Load engine calibration (typically at startup)
//	params, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default engine params", "error", err)
//	}
//	calc := ranking.NewCalculator(*params)
//
//	// Resolve the active weight configuration once per ranking pass,
//	// then score and order the whole candidate set in one call.
//	entries := calc.Rank(candidates, ranking.RankRequest{
//		Weights:     weights,
//		Categorized: true,
//		OrderBy:     ranking.OrderByScore,
//	})
//
//	// Slice the ordered entries into the requested page.
//	page, err := ranking.Paginate(entries, pageReq)
//
// Scoring Modes:
//
// Two historical scoring formulas exist for this system: a multiplicative
// model that starts from a neutral base of 1.0 and scales it per metric
// channel, and an additive model built from weighted conversion rates. The
// engine implements both as explicit modes selected by calibration; it never
// blends them. Additive is the default because it orders products usefully
// before any weight has been tuned off neutral.
//
// Calibration:
//
// Channel scales, penalty caps, the novelty horizon, and the scoring mode are
// deploy-time configuration loaded from an optional JSON file. Partial files
// are merged onto the defaults so a calibration file only needs to name the
// values it changes.
package ranking
