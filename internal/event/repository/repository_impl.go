package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gatherly/gatherly/internal/event/domain"
	"github.com/gatherly/gatherly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (id, host_id, category_id, title, slug, description, location, date,
		                     min_participants, max_participants, fee, currency, image, status,
		                     created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.HostID,
		event.CategoryID,
		event.Title,
		event.Slug,
		event.Description,
		event.Location,
		event.Date,
		event.MinParticipants,
		event.MaxParticipants,
		event.Fee,
		event.Currency,
		event.Image,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ListItem, error) {
	var item domain.ListItem
	err := db.WithContext(ctx).Raw(
		`SELECT events.*, categories.name AS category_name, profiles.full_name AS host_name
		 FROM events
		 JOIN categories ON categories.id = events.category_id
		 LEFT JOIN profiles ON profiles.user_id = events.host_id
		 WHERE events.id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// List applies the identical predicate to the count and the page so total can
// never drift from the filtered set.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Options) ([]domain.ListItem, int64, error) {
	base := func() *gorm.DB {
		stmt := db.WithContext(ctx).
			Table("events").
			Joins("JOIN categories ON categories.id = events.category_id").
			Joins("LEFT JOIN profiles ON profiles.user_id = events.host_id")

		if term := strings.ToLower(strings.TrimSpace(filter.SearchTerm)); term != "" {
			like := "%" + term + "%"
			stmt = stmt.Where(
				`LOWER(events.title) LIKE ? OR LOWER(events.description) LIKE ?
				 OR LOWER(events.location) LIKE ? OR LOWER(profiles.full_name) LIKE ?`,
				like, like, like, like,
			)
		}
		if filter.CategoryID != nil {
			stmt = stmt.Where("events.category_id = ?", *filter.CategoryID)
		}
		if filter.Location != "" {
			stmt = stmt.Where("events.location = ?", filter.Location)
		}
		if filter.Status != "" {
			stmt = stmt.Where("events.status = ?", filter.Status)
		}
		if filter.DateFrom != nil {
			stmt = stmt.Where("events.date >= ?", *filter.DateFrom)
		}
		if filter.DateTo != nil {
			stmt = stmt.Where("events.date <= ?", *filter.DateTo)
		}
		return stmt
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.ListItem
	err := base().
		Select("events.*, categories.name AS category_name, profiles.full_name AS host_name").
		Order("events." + page.OrderClause()).
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		category.ID,
		category.Name,
		category.CreatedAt,
	).Error
}

func (r *repo) FindCategory(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Category, error) {
	var category domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at FROM categories WHERE id = ?`,
		id,
	).Scan(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var categories []domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at FROM categories ORDER BY name`,
	).Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
