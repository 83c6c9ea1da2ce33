package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gatherly/gatherly/internal/event/domain"
	pkgdb "github.com/gatherly/gatherly/pkg/db"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Whitelisted sort fields for event listings. Keys are the API names,
// values the underlying columns.
var sortableFields = map[string]string{
	"createdAt": "created_at",
	"date":      "date",
	"fee":       "fee",
	"title":     "title",
}

const defaultCurrency = "USD"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("event.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, rawHostID string, req domain.CreateEventRequest) (domain.Event, error) {
	hostID, err := snowflake.ParseString(strings.TrimSpace(rawHostID))
	if err != nil || hostID == 0 {
		return domain.Event{}, domain.ErrInvalidID
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Event{}, domain.ErrInvalidTitle
	}
	if strings.TrimSpace(req.Description) == "" {
		return domain.Event{}, domain.ErrInvalidDescription
	}
	if strings.TrimSpace(req.Location) == "" {
		return domain.Event{}, domain.ErrInvalidLocation
	}

	date, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Date))
	if err != nil {
		return domain.Event{}, domain.ErrInvalidDate
	}

	if req.MinParticipants < 1 || req.MaxParticipants < req.MinParticipants {
		return domain.Event{}, domain.ErrInvalidParticipants
	}

	fee := decimal.Zero
	if strings.TrimSpace(req.Fee) != "" {
		fee, err = decimal.NewFromString(strings.TrimSpace(req.Fee))
		if err != nil || fee.IsNegative() {
			return domain.Event{}, domain.ErrInvalidFee
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	categoryID, err := snowflake.ParseString(strings.TrimSpace(req.CategoryID))
	if err != nil || categoryID == 0 {
		return domain.Event{}, domain.ErrInvalidCategory
	}
	category, err := s.repo.FindCategory(ctx, s.db, categoryID)
	if err != nil {
		return domain.Event{}, err
	}
	if category == nil {
		return domain.Event{}, domain.ErrCategoryNotFound
	}

	now := time.Now().UTC()
	event := domain.Event{
		ID:              s.genID.Generate(),
		HostID:          hostID,
		CategoryID:      categoryID,
		Title:           title,
		Slug:            slug.Make(title),
		Description:     strings.TrimSpace(req.Description),
		Location:        strings.TrimSpace(req.Location),
		Date:            date.UTC(),
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
		Fee:             fee,
		Currency:        currency,
		Image:           strings.TrimSpace(req.Image),
		Status:          domain.StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		return domain.Event{}, err
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("host_id", hostID.String()),
		zap.String("slug", event.Slug),
	)

	return event, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.ListItem, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.ListItem{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ListItem{}, err
	}
	if item == nil {
		return domain.ListItem{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListEventRequest) (domain.ListEventResponse, error) {
	page, err := req.Page.Resolve(sortableFields, "createdAt")
	if err != nil {
		return domain.ListEventResponse{}, err
	}

	filter := domain.ListFilter{
		SearchTerm: strings.TrimSpace(req.SearchTerm),
		Location:   strings.TrimSpace(req.Location),
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
	}

	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListEventResponse{}, domain.ErrInvalidCategory
		}
		filter.CategoryID = &id
	}

	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		switch domain.Status(raw) {
		case domain.StatusOpen, domain.StatusFull, domain.StatusCancelled:
			filter.Status = domain.Status(raw)
		default:
			return domain.ListEventResponse{}, domain.ErrInvalidStatus
		}
	}

	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListEventResponse{}, err
	}

	return domain.ListEventResponse{
		Meta:   page.BuildMeta(total),
		Events: items,
	}, nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidCategory
	}

	category := domain.Category{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertCategory(ctx, s.db, &category); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Category{}, domain.ErrCategoryTaken
		}
		return domain.Category{}, err
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, s.db)
}
