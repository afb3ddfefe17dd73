package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/productwall/internal/catalog"
	"github.com/onnwee/productwall/internal/middleware"
	"github.com/onnwee/productwall/internal/override"
	"github.com/onnwee/productwall/internal/wall"
)

// OrderHandlers serves curator position overrides.
type OrderHandlers struct {
	svc *wall.Service
}

// NewOrderHandlers creates override handlers.
func NewOrderHandlers(svc *wall.Service) *OrderHandlers {
	return &OrderHandlers{svc: svc}
}

// HandleSet handles POST /api/category_order: one override upsert.
// Returns 404 when the SKU does not belong to the category.
func (h *OrderHandlers) HandleSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var o override.Override
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	if err := h.svc.SetOverride(r.Context(), o); err != nil {
		writeOverrideError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, o)
}

// BulkOrderRequest is the bulk override payload.
type BulkOrderRequest struct {
	Overrides []override.Override `json:"overrides"`
}

// HandleBulk handles POST /api/category_order/bulk: apply a batch
// atomically. Any unknown SKU rejects the whole batch.
func (h *OrderHandlers) HandleBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req BulkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Overrides) == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "overrides must not be empty")
		return
	}

	if err := h.svc.SetOverrides(r.Context(), req.Overrides); err != nil {
		writeOverrideError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"applied": len(req.Overrides)})
}

// ResetOrderRequest names the category to clear.
type ResetOrderRequest struct {
	CategoryID int64 `json:"category_id"`
}

// HandleReset handles POST /api/category_order/reset: drop every override
// in a category.
func (h *OrderHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req ResetOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if req.CategoryID < 1 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "category_id must be a positive integer")
		return
	}

	removed, err := h.svc.ResetCategory(r.Context(), req.CategoryID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to reset category order")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"category_id": req.CategoryID,
		"removed":     removed,
	})
}

func writeOverrideError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *override.MissingSKUsError
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.As(err, &missing):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, override.ErrInvalidPosition):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	}
}
