package quote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Sort columns accepted from clients, keyed by every spelling the storefront uses.
var sortColumns = map[string]string{
	"created_at":         "created_at",
	"createdAt":          "created_at",
	"updated_at":         "updated_at",
	"updatedAt":          "updated_at",
	"reference":          "reference",
	"numero_solicitacao": "reference",
	"status":             "status",
}

type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	Ascending bool
	Status    Status
}

func (p ListParams) Offset() int { return (p.Page - 1) * p.Limit }

func ParseListParams(v url.Values) (ListParams, error) {
	p := ListParams{
		Page:   parseIntDefault(v.Get("page"), 1),
		Limit:  parseIntDefault(v.Get("limit"), DefaultLimit),
		SortBy: "created_at",
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if col, ok := sortColumns[strings.TrimSpace(v.Get("sortBy"))]; ok {
		p.SortBy = col
	}
	p.Ascending = strings.EqualFold(v.Get("sortOrder"), "asc")

	if raw := strings.TrimSpace(v.Get("status")); raw != "" && raw != "all" {
		st, ok := ParseStatus(raw)
		if !ok {
			return ListParams{}, fmt.Errorf("invalid status %q", raw)
		}
		p.Status = st
	}
	return p, nil
}

type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

func NewPagination(p ListParams, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		CurrentPage:  p.Page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: p.Limit,
		HasNextPage:  p.Page < pages,
		HasPrevPage:  p.Page > 1,
	}
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
