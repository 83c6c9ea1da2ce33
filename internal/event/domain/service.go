package domain

import (
	"context"
	"errors"
	"time"

	"github.com/gatherly/gatherly/pkg/db/pagination"
)

type CreateEventRequest struct {
	Title           string
	Description     string
	Location        string
	Date            string // RFC3339
	MinParticipants int
	MaxParticipants int
	CategoryID      string
	Fee             string // decimal, empty means free
	Currency        string
	Image           string
}

type ListEventRequest struct {
	SearchTerm string
	CategoryID string
	Location   string
	Status     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       pagination.Options
}

type ListEventResponse struct {
	Meta   pagination.Meta `json:"meta"`
	Events []ListItem      `json:"data"`
}

type Service interface {
	Create(ctx context.Context, hostID string, req CreateEventRequest) (Event, error)
	GetByID(ctx context.Context, id string) (ListItem, error)
	List(ctx context.Context, req ListEventRequest) (ListEventResponse, error)
	CreateCategory(ctx context.Context, name string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

var (
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrInvalidLocation     = errors.New("invalid_location")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidParticipants = errors.New("invalid_participants")
	ErrInvalidFee          = errors.New("invalid_fee")
	ErrInvalidCategory     = errors.New("invalid_category")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidID           = errors.New("invalid_id")
	ErrCategoryTaken       = errors.New("category_taken")
	ErrCategoryNotFound    = errors.New("category_not_found")
	ErrNotFound            = errors.New("event_not_found")
)
