package api

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/productwall/internal/middleware"
	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/weights"
)

// WeightHandlers serves the weight configuration log.
type WeightHandlers struct {
	store *weights.Store
}

// NewWeightHandlers creates weight configuration handlers.
func NewWeightHandlers(store *weights.Store) *WeightHandlers {
	return &WeightHandlers{store: store}
}

// HandleWeights handles GET /api/weights (current configuration) and
// POST /api/weights (append an update).
func (h *WeightHandlers) HandleWeights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.current(w, r)
	case http.MethodPost:
		h.update(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *WeightHandlers) current(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Latest(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load weights")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// update appends a new configuration row. The body is a partial patch:
// absent coefficients keep their current values, so callers can tune one
// channel without restating the rest.
func (h *WeightHandlers) update(w http.ResponseWriter, r *http.Request) {
	var patch ranking.WeightPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	rec, err := h.store.Update(r.Context(), patch)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update weights")
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

// HandleReset handles POST /api/weights/reset: append a neutral row
// without erasing the log.
func (h *WeightHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	rec, err := h.store.Reset(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to reset weights")
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

// HandleHistory handles GET /api/weights/history.
func (h *WeightHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	records, err := h.store.History(r.Context(), 50)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load weight history")
		return
	}
	if records == nil {
		records = []weights.Record{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"history": records})
}
