package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/onnwee/productwall/internal/catalog"
	"github.com/onnwee/productwall/internal/middleware"
	"github.com/onnwee/productwall/internal/override"
	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/wall"
)

// maxCSVUploadBytes bounds override CSV uploads.
const maxCSVUploadBytes = 5 << 20

// CategoryHandlers serves category listings and per-category override
// CSV exchange.
type CategoryHandlers struct {
	svc     *wall.Service
	catalog *catalog.Store
}

// NewCategoryHandlers creates category handlers.
func NewCategoryHandlers(svc *wall.Service, cat *catalog.Store) *CategoryHandlers {
	return &CategoryHandlers{svc: svc, catalog: cat}
}

// HandleCategories handles GET /api/categories.
func (h *CategoryHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// HandleCategoryByID handles /api/categories/{id} and its export/import
// subroutes.
func (h *CategoryHandlers) HandleCategoryByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/categories/"), "/")

	categoryID, err := strconv.ParseInt(pathParts[0], 10, 64)
	if err != nil || categoryID < 1 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "category id must be a positive integer")
		return
	}

	switch {
	case len(pathParts) == 1:
		h.rankedCategory(w, r, categoryID)
	case len(pathParts) == 2 && pathParts[1] == "export":
		h.exportCSV(w, r, categoryID)
	case len(pathParts) == 2 && pathParts[1] == "import":
		h.importCSV(w, r, categoryID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Not found")
	}
}

// rankedCategory handles GET /api/categories/{id}: the ranked wall of one
// category, overrides applied.
func (h *CategoryHandlers) rankedCategory(w http.ResponseWriter, r *http.Request, categoryID int64) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()
	page, err := ranking.ParsePageRequest(q.Get("page"), q.Get("per_page"))
	if err != nil {
		writeWallError(w, r, err)
		return
	}

	res, err := h.svc.Wall(r.Context(), wall.Query{
		Filter: catalog.Filter{CategoryID: categoryID, HideNoPrice: true},
		Page:   page,
	})
	if err != nil {
		writeWallError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// exportCSV handles GET /api/categories/{id}/export.
func (h *CategoryHandlers) exportCSV(w http.ResponseWriter, r *http.Request, categoryID int64) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="category_%d_order.csv"`, categoryID))
	if err := h.svc.ExportOverridesCSV(r.Context(), w, categoryID); err != nil {
		// Headers are already written; the truncated body is the best we
		// can do here.
		middleware.UpdateResponseContext(w, middleware.SetErrorCode(r.Context(), ErrCodeInternal))
	}
}

// importCSV handles POST /api/categories/{id}/import. The upload can be a
// multipart form with a "file" field or a raw CSV body.
func (h *CategoryHandlers) importCSV(w http.ResponseWriter, r *http.Request, categoryID int64) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxCSVUploadBytes)
	reader := io.Reader(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCSVUploadBytes); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart form")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "file field is required")
			return
		}
		defer file.Close()
		reader = file
	}

	applied, err := h.svc.ImportOverridesCSV(r.Context(), reader, categoryID)
	if err != nil {
		writeImportError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"applied":     applied,
		"category_id": categoryID,
	})
}

// writeImportError distinguishes unknown-SKU rejections (404 with every
// missing SKU named) from malformed CSV (400).
func writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *override.MissingSKUsError
	if errors.As(err, &missing) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
	WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
}
