package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	participationdomain "github.com/gatherly/gatherly/internal/participation/domain"
	"github.com/gatherly/gatherly/internal/review/domain"
	pkgdb "github.com/gatherly/gatherly/pkg/db"
)

var sortableFields = map[string]string{
	"createdAt": "created_at",
	"rating":    "rating",
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	Participants participationdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	participants participationdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("review.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		participants: p.Participants,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateReviewRequest) (*domain.Review, error) {
	eventID, err := snowflake.ParseString(strings.TrimSpace(req.EventID))
	if err != nil || eventID == 0 {
		return nil, domain.ErrInvalidID
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidID
	}

	if req.Rating < 1 || req.Rating > 5 {
		return nil, domain.ErrInvalidRating
	}
	comment := strings.TrimSpace(req.Comment)
	// Length bounds count characters, not bytes.
	if length := utf8.RuneCountInString(comment); comment != "" && (length < 3 || length > 500) {
		return nil, domain.ErrInvalidComment
	}

	event, err := s.participants.FindEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	if event.Date.After(time.Now().UTC()) {
		return nil, domain.ErrEventNotEnded
	}

	participant, err := s.participants.FindParticipant(ctx, s.db, eventID, userID)
	if err != nil {
		return nil, err
	}
	if participant == nil || participant.Status != participationdomain.ParticipantJoined {
		return nil, domain.ErrNotParticipant
	}

	existing, err := s.repo.FindByEventAndUser(ctx, s.db, eventID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyReviewed
	}

	now := time.Now().UTC()
	review := domain.Review{
		ID:        s.genID.Generate(),
		EventID:   eventID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &review); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyReviewed
		}
		return nil, err
	}

	s.log.Info("review created",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("rating", review.Rating),
	)
	return &review, nil
}

func (s *Service) ListByEvent(ctx context.Context, req domain.ListReviewRequest) (*domain.ListReviewResponse, error) {
	eventID, err := snowflake.ParseString(strings.TrimSpace(req.EventID))
	if err != nil || eventID == 0 {
		return nil, domain.ErrInvalidID
	}

	event, err := s.participants.FindEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	page, err := req.Page.Resolve(sortableFields, "createdAt")
	if err != nil {
		return nil, err
	}

	items, total, err := s.repo.ListByEvent(ctx, s.db, eventID, page)
	if err != nil {
		return nil, err
	}

	return &domain.ListReviewResponse{
		Meta:    page.BuildMeta(total),
		Reviews: items,
	}, nil
}
