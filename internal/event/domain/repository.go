package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gatherly/gatherly/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	SearchTerm string
	CategoryID *snowflake.ID
	Location   string
	Status     Status
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ListItem, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Options) ([]ListItem, int64, error)
	InsertCategory(ctx context.Context, db *gorm.DB, category *Category) error
	FindCategory(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Category, error)
	ListCategories(ctx context.Context, db *gorm.DB) ([]Category, error)
}
