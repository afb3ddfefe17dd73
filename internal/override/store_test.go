package override

import (
	"context"
	"testing"

	"github.com/onnwee/productwall/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn, nil)
}

func TestSetUpsertsLastWriterWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, Override{SKU: "SKU-A", CategoryID: 10, Position: 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, Override{SKU: "SKU-A", CategoryID: 10, Position: 1}); err != nil {
		t.Fatalf("Set replace: %v", err)
	}

	got, err := s.ListByCategory(ctx, 10)
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	if len(got) != 1 || got[0].Position != 1 {
		t.Fatalf("got %+v, want single override at position 1", got)
	}
}

func TestSetValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		o    Override
	}{
		{"zero position", Override{SKU: "SKU-A", CategoryID: 10, Position: 0}},
		{"negative position", Override{SKU: "SKU-A", CategoryID: 10, Position: -2}},
		{"blank sku", Override{SKU: "  ", CategoryID: 10, Position: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Set(ctx, tt.o); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSameSKUDifferentCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetAll(ctx, []Override{
		{SKU: "SKU-A", CategoryID: 10, Position: 1},
		{SKU: "SKU-A", CategoryID: 20, Position: 5},
	}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d overrides, want 2 (one per category)", len(all))
	}
}

func TestSetAllRejectsWholeBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SetAll(ctx, []Override{
		{SKU: "SKU-A", CategoryID: 10, Position: 1},
		{SKU: "SKU-B", CategoryID: 10, Position: 0},
	})
	if err == nil {
		t.Fatal("expected error for invalid batch")
	}

	got, lerr := s.ListByCategory(ctx, 10)
	if lerr != nil {
		t.Fatalf("ListByCategory: %v", lerr)
	}
	if len(got) != 0 {
		t.Fatalf("got %d overrides after failed batch, want 0 (no partial apply)", len(got))
	}
}

func TestResetCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetAll(ctx, []Override{
		{SKU: "SKU-A", CategoryID: 10, Position: 1},
		{SKU: "SKU-B", CategoryID: 10, Position: 2},
		{SKU: "SKU-C", CategoryID: 20, Position: 1},
	}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	removed, err := s.ResetCategory(ctx, 10)
	if err != nil {
		t.Fatalf("ResetCategory: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	other, err := s.ListByCategory(ctx, 20)
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("category 20 has %d overrides, want 1 untouched", len(other))
	}
}

func TestListByCategoryOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetAll(ctx, []Override{
		{SKU: "SKU-C", CategoryID: 10, Position: 2},
		{SKU: "SKU-A", CategoryID: 10, Position: 7},
		{SKU: "SKU-B", CategoryID: 10, Position: 2},
	}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	got, err := s.ListByCategory(ctx, 10)
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	want := []string{"SKU-B", "SKU-C", "SKU-A"}
	for i, sku := range want {
		if got[i].SKU != sku {
			t.Errorf("position %d: got %s, want %s", i, got[i].SKU, sku)
		}
	}
}

func TestPositionsByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetAll(ctx, []Override{
		{SKU: "SKU-A", CategoryID: 10, Position: 4},
		{SKU: "SKU-B", CategoryID: 10, Position: 1},
	}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	positions, err := s.PositionsByCategory(ctx, 10)
	if err != nil {
		t.Fatalf("PositionsByCategory: %v", err)
	}
	if positions["SKU-A"] != 4 || positions["SKU-B"] != 1 {
		t.Errorf("positions = %v", positions)
	}
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), "SKU-X", 10); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}
