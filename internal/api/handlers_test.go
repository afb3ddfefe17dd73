package api

import (
	"context"
	"testing"

	"github.com/onnwee/productwall/internal/catalog"
	"github.com/onnwee/productwall/internal/db"
	"github.com/onnwee/productwall/internal/override"
	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/stats"
	"github.com/onnwee/productwall/internal/wall"
	"github.com/onnwee/productwall/internal/weights"
)

// handlerEnv wires every handler group against real stores on a fresh
// in-memory database.
type handlerEnv struct {
	products   *ProductHandlers
	categories *CategoryHandlers
	weights    *WeightHandlers
	orders     *OrderHandlers

	catalogStore  *catalog.Store
	weightStore   *weights.Store
	overrideStore *override.Store
	svc           *wall.Service
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	cat := catalog.NewStore(conn, nil)
	ws := weights.NewStore(conn, nil)
	ovr := override.NewStore(conn, nil)
	calc := ranking.NewCalculator(*ranking.DefaultParams())
	svc := wall.New(cat, ws, ovr, calc, nil, nil)

	return &handlerEnv{
		products:      NewProductHandlers(svc, cat, stats.NewUpsertStats()),
		categories:    NewCategoryHandlers(svc, cat),
		weights:       NewWeightHandlers(ws),
		orders:        NewOrderHandlers(svc),
		catalogStore:  cat,
		weightStore:   ws,
		overrideStore: ovr,
		svc:           svc,
	}
}

// seed loads three products into category 10 with clearly separated
// behavioral metrics, so the default ranking is HOT, MID, COLD.
func (e *handlerEnv) seed(t *testing.T) {
	t.Helper()
	products := []catalog.Product{
		{
			SKU: "SKU-HOT", Name: "Hot Seller", Price: 80, Available: true,
			Metrics:    ranking.Metrics{Sessions: 300, Views: 250, CartAdditions: 40, CheckoutStarts: 20, OrdersGross: 15, OrdersNet: 14},
			Categories: []int64{10},
		},
		{
			SKU: "SKU-MID", Name: "Mid Seller", Price: 60, Available: true,
			Metrics:    ranking.Metrics{Sessions: 100, Views: 60, CartAdditions: 10, OrdersGross: 2, OrdersNet: 2},
			Categories: []int64{10},
		},
		{
			SKU: "SKU-COLD", Name: "Cold Item", Price: 40, Available: true,
			Metrics:    ranking.Metrics{Sessions: 10, Views: 5},
			Categories: []int64{10},
		},
	}
	if _, err := e.catalogStore.UpsertProducts(context.Background(), products); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	if err := e.catalogStore.SaveCategories(context.Background(), []catalog.Category{
		{ID: 10, Name: "Hoodies", IsActive: true},
		{ID: 20, Name: "Socks", IsActive: true},
	}); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
}
