package pagination

import (
	"errors"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrInvalidSort = errors.New("invalid_sort")

// Options is the page/limit/sort triple shared by every listing endpoint.
type Options struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// Meta echoes the applied options plus the total matching the same predicate
// as the returned page.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Resolve normalizes options against a whitelist of sortable columns.
// An unknown sort field is a validation error, never silently reordered.
func (o Options) Resolve(sortable map[string]string, defaultSort string) (Options, error) {
	out := o
	if out.Page < 1 {
		out.Page = 1
	}
	if out.Limit <= 0 {
		out.Limit = DefaultLimit
	}
	if out.Limit > MaxLimit {
		out.Limit = MaxLimit
	}

	sortBy := strings.TrimSpace(out.SortBy)
	if sortBy == "" {
		sortBy = defaultSort
	}
	column, ok := sortable[sortBy]
	if !ok {
		return Options{}, ErrInvalidSort
	}
	out.SortBy = column

	switch strings.ToLower(strings.TrimSpace(out.SortOrder)) {
	case "", "desc":
		out.SortOrder = "desc"
	case "asc":
		out.SortOrder = "asc"
	default:
		return Options{}, ErrInvalidSort
	}

	return out, nil
}

func (o Options) Offset() int {
	return (o.Page - 1) * o.Limit
}

func (o Options) OrderClause() string {
	return o.SortBy + " " + o.SortOrder
}

func (o Options) BuildMeta(total int64) Meta {
	return Meta{Page: o.Page, Limit: o.Limit, Total: total}
}
