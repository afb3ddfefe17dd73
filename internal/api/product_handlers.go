package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/onnwee/productwall/internal/catalog"
	"github.com/onnwee/productwall/internal/middleware"
	"github.com/onnwee/productwall/internal/override"
	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/stats"
	"github.com/onnwee/productwall/internal/wall"
)

// ProductHandlers serves the ranked product wall and catalog imports.
type ProductHandlers struct {
	svc     *wall.Service
	catalog *catalog.Store
	stats   *stats.UpsertStats
}

// NewProductHandlers creates product wall handlers.
func NewProductHandlers(svc *wall.Service, cat *catalog.Store, st *stats.UpsertStats) *ProductHandlers {
	if st == nil {
		st = stats.NewUpsertStats()
	}
	return &ProductHandlers{svc: svc, catalog: cat, stats: st}
}

// HandleProducts handles GET /api/products.
//
// Query parameters: category, page, per_page ("all" accepted for page),
// order_by (score|popularity), hide_no_price, search, gender, sku.
func (h *ProductHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	query, ok := h.parseWallQuery(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Wall(r.Context(), query)
	if err != nil {
		writeWallError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *ProductHandlers) parseWallQuery(w http.ResponseWriter, r *http.Request) (wall.Query, bool) {
	q := r.URL.Query()

	page, err := ranking.ParsePageRequest(q.Get("page"), q.Get("per_page"))
	if err != nil {
		writeWallError(w, r, err)
		return wall.Query{}, false
	}

	filter := catalog.Filter{
		HideNoPrice: q.Get("hide_no_price") != "false",
		Search:      q.Get("search"),
		Gender:      q.Get("gender"),
		SKU:         q.Get("sku"),
	}
	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "category must be a non-negative integer")
			return wall.Query{}, false
		}
		filter.CategoryID = id
	}
	if err := filter.Validate(); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return wall.Query{}, false
	}

	orderBy := ranking.OrderByScore
	switch q.Get("order_by") {
	case "", "score":
	case "popularity":
		orderBy = ranking.OrderByPopularity
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "order_by must be score or popularity")
		return wall.Query{}, false
	}

	return wall.Query{Filter: filter, OrderBy: orderBy, Page: page}, true
}

// ImportRequest is the bulk catalog import payload.
type ImportRequest struct {
	Products   []catalog.Product  `json:"products"`
	Categories []catalog.Category `json:"categories,omitempty"`
}

// ImportResponse reports how the batch was applied.
type ImportResponse struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// HandleImport handles POST /api/products/import.
func (h *ProductHandlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Products) == 0 && len(req.Categories) == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "products or categories required")
		return
	}

	if len(req.Categories) > 0 {
		if err := h.catalog.SaveCategories(r.Context(), req.Categories); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save categories")
			return
		}
	}

	var res catalog.UpsertResult
	if len(req.Products) > 0 {
		var err error
		res, err = h.catalog.UpsertProducts(r.Context(), req.Products)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to import products")
			return
		}
		h.stats.RecordBatch(res.Inserted, res.Updated, res.Skipped)
	}

	WriteJSON(w, http.StatusOK, ImportResponse{
		Inserted: res.Inserted,
		Updated:  res.Updated,
		Skipped:  res.Skipped,
	})
}

// writeWallError maps service errors to the API error envelope.
func writeWallError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		code    string
		status  int
		missing *override.MissingSKUsError
	)
	switch {
	case errors.Is(err, ranking.ErrPageOutOfRange):
		code, status = ErrCodeOutOfRange, http.StatusBadRequest
	case errors.Is(err, ranking.ErrInvalidPageSize):
		code, status = ErrCodeInvalidPageSize, http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrCategoryNotFound):
		code, status = ErrCodeNotFound, http.StatusNotFound
	case errors.Is(err, catalog.ErrSearchTooLong):
		code, status = ErrCodeValidation, http.StatusBadRequest
	case errors.As(err, &missing):
		code, status = ErrCodeNotFound, http.StatusNotFound
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
		return
	}
	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, err.Error())
}
