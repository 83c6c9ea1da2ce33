package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	pkgdb "github.com/gatherly/gatherly/pkg/db"
	"github.com/gatherly/gatherly/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

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
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.UserWithProfile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.UserWithProfile{}, domain.ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return domain.UserWithProfile{}, domain.ErrInvalidPassword
	}

	fullName := strings.TrimSpace(req.Profile.FullName)
	if fullName == "" {
		return domain.UserWithProfile{}, domain.ErrInvalidFullName
	}

	role := domain.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.UserWithProfile{}, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserWithProfile{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := domain.Profile{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		FullName:  fullName,
		Bio:       strings.TrimSpace(req.Profile.Bio),
		Location:  strings.TrimSpace(req.Profile.Location),
		Image:     strings.TrimSpace(req.Profile.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertUser(ctx, tx, &user); err != nil {
			return err
		}
		return s.repo.InsertProfile(ctx, tx, &profile)
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.UserWithProfile{}, domain.ErrEmailTaken
		}
		return domain.UserWithProfile{}, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return domain.UserWithProfile{User: user, Profile: &profile}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.UserWithProfile, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.UserWithProfile{}, domain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.UserWithProfile{}, err
	}
	if user == nil {
		return domain.UserWithProfile{}, domain.ErrNotFound
	}

	profile, err := s.repo.FindProfile(ctx, s.db, user.ID)
	if err != nil {
		return domain.UserWithProfile{}, err
	}

	return domain.UserWithProfile{User: *user, Profile: profile}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, rawID string, req domain.UpdateProfileRequest) (domain.UserWithProfile, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.UserWithProfile{}, domain.ErrInvalidID
	}

	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return domain.UserWithProfile{}, domain.ErrInvalidFullName
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.UserWithProfile{}, err
	}
	if user == nil {
		return domain.UserWithProfile{}, domain.ErrNotFound
	}

	profile, err := s.repo.FindProfile(ctx, s.db, user.ID)
	if err != nil {
		return domain.UserWithProfile{}, err
	}
	if profile == nil {
		return domain.UserWithProfile{}, domain.ErrNotFound
	}

	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Bio != nil {
		profile.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		profile.Location = strings.TrimSpace(*req.Location)
	}
	if req.Image != nil {
		profile.Image = strings.TrimSpace(*req.Image)
	}
	profile.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateProfile(ctx, s.db, profile); err != nil {
		return domain.UserWithProfile{}, err
	}

	s.log.Info("profile updated", zap.String("user_id", user.ID.String()))

	return domain.UserWithProfile{User: *user, Profile: profile}, nil
}
