package ranking

import (
	"errors"
	"strconv"
	"strings"
)

// AllowedPerPage is the enumerated set of accepted page sizes.
var AllowedPerPage = []int{20, 50, 100, 200, 500}

// DefaultPerPage is the page size used when the caller does not supply one.
const DefaultPerPage = 20

// Pagination errors.
var (
	// ErrPageOutOfRange indicates a page number below 1 or not a number.
	ErrPageOutOfRange = errors.New("page is out of range")

	// ErrInvalidPageSize indicates a per_page value outside AllowedPerPage.
	ErrInvalidPageSize = errors.New("per_page is not an allowed page size")
)

// PageRequest is a validated pagination request. All is the "all" sentinel:
// several long-standing callers send page=all and expect an empty item list
// with correct count metadata, so it is part of the contract.
type PageRequest struct {
	Page    int
	PerPage int
	All     bool
}

// Page is one slice of the ordered entries plus pagination metadata.
type Page struct {
	Items      []Entry `json:"products"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}

// ParsePageRequest validates raw page and per_page query values.
// Empty strings take the defaults (page 1, DefaultPerPage).
func ParsePageRequest(rawPage, rawPerPage string) (PageRequest, error) {
	req := PageRequest{Page: 1, PerPage: DefaultPerPage}

	switch raw := strings.TrimSpace(rawPage); raw {
	case "":
	case "all":
		req.All = true
	default:
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return PageRequest{}, ErrPageOutOfRange
		}
		req.Page = page
	}

	if raw := strings.TrimSpace(rawPerPage); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			return PageRequest{}, ErrInvalidPageSize
		}
		req.PerPage = perPage
	}
	if !allowedPerPage(req.PerPage) {
		return PageRequest{}, ErrInvalidPageSize
	}

	return req, nil
}

// Paginate slices the already fully-ordered entries into the requested
// page. No sorting happens here; it is a pure offset/limit operation.
// Pages past the end return an empty slice with correct metadata, as does
// the "all" sentinel.
func Paginate(entries []Entry, req PageRequest) (Page, error) {
	if !req.All && req.Page < 1 {
		return Page{}, ErrPageOutOfRange
	}
	if !allowedPerPage(req.PerPage) {
		return Page{}, ErrInvalidPageSize
	}

	total := len(entries)
	totalPages := (total + req.PerPage - 1) / req.PerPage

	if req.All {
		return Page{
			Items:      []Entry{},
			Page:       1,
			PerPage:    req.PerPage,
			Total:      total,
			TotalPages: totalPages,
		}, nil
	}

	start := (req.Page - 1) * req.PerPage
	if start > total {
		start = total
	}
	end := start + req.PerPage
	if end > total {
		end = total
	}

	items := make([]Entry, end-start)
	copy(items, entries[start:end])

	return Page{
		Items:      items,
		Page:       req.Page,
		PerPage:    req.PerPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func allowedPerPage(perPage int) bool {
	for _, allowed := range AllowedPerPage {
		if perPage == allowed {
			return true
		}
	}
	return false
}
