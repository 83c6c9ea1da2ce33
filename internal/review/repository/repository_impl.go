package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/review/domain"
	"github.com/gatherly/gatherly/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reviews (id, event_id, user_id, rating, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.EventID,
		review.UserID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	).Error
}

func (r *repo) FindByEventAndUser(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*domain.Review, error) {
	var review domain.Review
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, rating, comment, created_at, updated_at
		 FROM reviews WHERE event_id = ? AND user_id = ?`,
		eventID,
		userID,
	).Scan(&review).Error
	if err != nil {
		return nil, err
	}
	if review.ID == 0 {
		return nil, nil
	}
	return &review, nil
}

func (r *repo) ListByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID, page pagination.Options) ([]domain.ListItem, int64, error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).
			Table("reviews").
			Joins("LEFT JOIN profiles ON profiles.user_id = reviews.user_id").
			Where("reviews.event_id = ?", eventID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.ListItem
	err := base().
		Select("reviews.*, profiles.full_name AS reviewer_name").
		Order("reviews." + page.OrderClause()).
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
