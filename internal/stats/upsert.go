// Package stats provides utilities for tracking upsert operation statistics.
package stats

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// UpsertStats tracks cumulative statistics for catalog import operations.
// All operations are thread-safe using atomic counters.
type UpsertStats struct {
	inserted int64 // Total records inserted
	updated  int64 // Total records updated
	skipped  int64 // Total records skipped (malformed rows)
}

// NewUpsertStats creates a new UpsertStats instance.
func NewUpsertStats() *UpsertStats {
	return &UpsertStats{}
}

// RecordBatch adds one import batch's counts.
func (s *UpsertStats) RecordBatch(inserted, updated, skipped int) {
	atomic.AddInt64(&s.inserted, int64(inserted))
	atomic.AddInt64(&s.updated, int64(updated))
	atomic.AddInt64(&s.skipped, int64(skipped))
}

// Inserted returns the total number of inserts.
func (s *UpsertStats) Inserted() int64 {
	return atomic.LoadInt64(&s.inserted)
}

// Updated returns the total number of updates.
func (s *UpsertStats) Updated() int64 {
	return atomic.LoadInt64(&s.updated)
}

// Skipped returns the total number of skipped records.
func (s *UpsertStats) Skipped() int64 {
	return atomic.LoadInt64(&s.skipped)
}

// Total returns the total number of applied upserts (inserts + updates).
func (s *UpsertStats) Total() int64 {
	return s.Inserted() + s.Updated()
}

// Reset resets all counters to zero.
func (s *UpsertStats) Reset() {
	atomic.StoreInt64(&s.inserted, 0)
	atomic.StoreInt64(&s.updated, 0)
	atomic.StoreInt64(&s.skipped, 0)
}

// String returns a human-readable summary of the statistics.
func (s *UpsertStats) String() string {
	return fmt.Sprintf("inserted=%d updated=%d skipped=%d total=%d",
		s.Inserted(), s.Updated(), s.Skipped(), s.Total())
}

// LogSummary logs a summary of import statistics at INFO level.
// Useful for periodic reporting during feed ingestion.
func (s *UpsertStats) LogSummary(logger *slog.Logger, entity string) {
	logger.Info("upsert statistics",
		"entity", entity,
		"inserted", s.Inserted(),
		"updated", s.Updated(),
		"skipped", s.Skipped(),
		"total", s.Total(),
	)
}
