package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestHandleSetOrder(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t)

	w := doJSON(t, env.orders.HandleSet, http.MethodPost, "/api/category_order",
		`{"sku": "SKU-COLD", "category_id": 10, "position": 1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	positions, err := env.overrideStore.PositionsByCategory(context.Background(), 10)
	if err != nil {
		t.Fatalf("PositionsByCategory: %v", err)
	}
	if positions["SKU-COLD"] != 1 {
		t.Errorf("positions = %v, want SKU-COLD at 1", positions)
	}
}

func TestHandleSetOrder_Errors(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown sku",
			body:       `{"sku": "SKU-GONE", "category_id": 10, "position": 1}`,
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "sku not in category",
			body:       `{"sku": "SKU-COLD", "category_id": 20, "position": 1}`,
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "zero position",
			body:       `{"sku": "SKU-COLD", "category_id": 10, "position": 0}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "blank sku",
			body:       `{"sku": "", "category_id": 10, "position": 1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, env.orders.HandleSet, http.MethodPost, "/api/category_order", tt.body)
			wantErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestHandleBulkOrder(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t)

	body := `{"overrides": [
		{"sku": "SKU-COLD", "category_id": 10, "position": 1},
		{"sku": "SKU-MID", "category_id": 10, "position": 2}
	]}`
	w := doJSON(t, env.orders.HandleBulk, http.MethodPost, "/api/category_order/bulk", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var res struct {
		Applied int `json:"applied"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Applied != 2 {
		t.Errorf("applied = %d, want 2", res.Applied)
	}
}

func TestHandleBulkOrder_UnknownSKUsRejectWholeBatch(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t)

	body := `{"overrides": [
		{"sku": "SKU-COLD", "category_id": 10, "position": 1},
		{"sku": "SKU-GONE", "category_id": 10, "position": 2},
		{"sku": "SKU-LOST", "category_id": 10, "position": 3}
	]}`
	w := doJSON(t, env.orders.HandleBulk, http.MethodPost, "/api/category_order/bulk", body)
	wantErrorCode(t, w, http.StatusNotFound, ErrCodeNotFound)

	for _, sku := range []string{"SKU-GONE", "SKU-LOST"} {
		if !strings.Contains(w.Body.String(), sku) {
			t.Errorf("error should name %s: %s", sku, w.Body.String())
		}
	}

	positions, err := env.overrideStore.PositionsByCategory(context.Background(), 10)
	if err != nil {
		t.Fatalf("PositionsByCategory: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %v, want none after rejected batch", positions)
	}
}

func TestHandleBulkOrder_EmptyBatch(t *testing.T) {
	env := newHandlerEnv(t)

	w := doJSON(t, env.orders.HandleBulk, http.MethodPost, "/api/category_order/bulk", `{"overrides": []}`)
	wantErrorCode(t, w, http.StatusBadRequest, ErrCodeValidation)
}

func TestHandleResetOrder(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t)

	doJSON(t, env.orders.HandleBulk, http.MethodPost, "/api/category_order/bulk",
		`{"overrides": [
			{"sku": "SKU-COLD", "category_id": 10, "position": 1},
			{"sku": "SKU-MID", "category_id": 10, "position": 2}
		]}`)

	w := doJSON(t, env.orders.HandleReset, http.MethodPost, "/api/category_order/reset", `{"category_id": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var res struct {
		CategoryID int64 `json:"category_id"`
		Removed    int   `json:"removed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Removed != 2 {
		t.Errorf("removed = %d, want 2", res.Removed)
	}

	positions, err := env.overrideStore.PositionsByCategory(context.Background(), 10)
	if err != nil {
		t.Fatalf("PositionsByCategory: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %v, want none after reset", positions)
	}
}

func TestHandleResetOrder_InvalidCategory(t *testing.T) {
	env := newHandlerEnv(t)

	w := doJSON(t, env.orders.HandleReset, http.MethodPost, "/api/category_order/reset", `{"category_id": 0}`)
	wantErrorCode(t, w, http.StatusBadRequest, ErrCodeValidation)
}
