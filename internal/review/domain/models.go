package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/pkg/db/pagination"
)

var (
	ErrInvalidRating  = errors.New("invalid_rating")
	ErrInvalidComment = errors.New("invalid_comment")
	ErrInvalidID      = errors.New("invalid_id")
	ErrEventNotFound  = errors.New("event_not_found")
	// ErrEventNotEnded: reviews open only after the event date has passed.
	ErrEventNotEnded = errors.New("event_not_ended")
	// ErrNotParticipant: only confirmed participants may review.
	ErrNotParticipant  = errors.New("not_a_participant")
	ErrAlreadyReviewed = errors.New("already_reviewed")
)

// Review is one attendee's rating of an event, unique per (event, user).
type Review struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	EventID   snowflake.ID `gorm:"not null;uniqueIndex:idx_review_event_user" json:"event_id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:idx_review_event_user" json:"user_id"`
	Rating    int          `gorm:"not null" json:"rating"`
	Comment   string       `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }

// ListItem joins the reviewer's display name onto the review row.
type ListItem struct {
	Review
	ReviewerName string `gorm:"column:reviewer_name" json:"reviewer_name"`
}

type CreateReviewRequest struct {
	EventID string `json:"-"`
	UserID  string `json:"-"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ListReviewRequest struct {
	EventID string
	Page    pagination.Options
}

type ListReviewResponse struct {
	Meta    pagination.Meta `json:"meta"`
	Reviews []ListItem      `json:"reviews"`
}

type Service interface {
	Create(ctx context.Context, req CreateReviewRequest) (*Review, error)
	ListByEvent(ctx context.Context, req ListReviewRequest) (*ListReviewResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, review *Review) error
	FindByEventAndUser(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*Review, error)
	ListByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID, page pagination.Options) ([]ListItem, int64, error)
}
