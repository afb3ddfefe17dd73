package ranking

import (
	"sort"
	"time"
)

// OrderBy selects the ordering key for entries without a manual position.
type OrderBy string

const (
	// OrderByScore orders by the weighted score. Default.
	OrderByScore OrderBy = "score"

	// OrderByPopularity orders by raw behavioral volume (gross orders, then
	// views) instead of the weighted score. The score is still computed and
	// attached to every entry for observability.
	OrderByPopularity OrderBy = "popularity"
)

// Entry is one ranked product in the output ordering.
type Entry struct {
	SKU      string  `json:"sku"`
	Score    float64 `json:"score"`
	Position *int    `json:"position,omitempty"`
	Rank     int     `json:"rank"`
}

// RankRequest carries the per-pass inputs resolved by the caller: the active
// weight configuration, whether a category filter is in effect (which makes
// manual positions authoritative), and the ordering key.
type RankRequest struct {
	Weights     WeightConfig
	Categorized bool
	OrderBy     OrderBy
}

// Rank scores every candidate and produces one total order.
//
// With a category in effect, curated entries (non-nil Position) strictly
// precede computed entries and are sorted by position ascending; everything
// else sorts by the ordering key descending. The tie-break chain is always
// score descending then SKU ascending, so the order is fully deterministic.
// Without a category, positions are ignored and the whole set sorts by the
// ordering key alone.
//
// Manual positions never change scores; a curated entry keeps its computed
// score so curators can see what the engine would have done.
func (c *Calculator) Rank(cands []Candidate, req RankRequest) []Entry {
	return c.RankAt(cands, req, time.Now().UTC())
}

// RankAt is Rank with an explicit reference time for the novelty adjustment.
func (c *Calculator) RankAt(cands []Candidate, req RankRequest, now time.Time) []Entry {
	type scored struct {
		cand  Candidate
		score float64
	}

	items := make([]scored, 0, len(cands))
	for _, cand := range cands {
		items = append(items, scored{
			cand:  cand,
			score: c.ScoreAt(cand, req.Weights, now),
		})
	}

	// Ordering key for uncurated entries. Raw comparisons use unrounded
	// scores so display rounding cannot manufacture ties.
	less := func(a, b scored) bool {
		if req.OrderBy == OrderByPopularity {
			if a.cand.Metrics.OrdersGross != b.cand.Metrics.OrdersGross {
				return a.cand.Metrics.OrdersGross > b.cand.Metrics.OrdersGross
			}
			if a.cand.Metrics.Views != b.cand.Metrics.Views {
				return a.cand.Metrics.Views > b.cand.Metrics.Views
			}
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.cand.SKU < b.cand.SKU
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if req.Categorized {
			aPos, bPos := a.cand.Position, b.cand.Position
			switch {
			case aPos != nil && bPos == nil:
				return true
			case aPos == nil && bPos != nil:
				return false
			case aPos != nil && bPos != nil:
				if *aPos != *bPos {
					return *aPos < *bPos
				}
				if a.score != b.score {
					return a.score > b.score
				}
				return a.cand.SKU < b.cand.SKU
			}
		}
		return less(a, b)
	})

	entries := make([]Entry, len(items))
	for i, it := range items {
		var pos *int
		if req.Categorized && it.cand.Position != nil {
			p := *it.cand.Position
			pos = &p
		}
		entries[i] = Entry{
			SKU:      it.cand.SKU,
			Score:    c.Round(it.score),
			Position: pos,
			Rank:     i + 1,
		}
	}
	return entries
}
