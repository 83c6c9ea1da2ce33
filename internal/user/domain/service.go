package domain

import (
	"context"
	"errors"
)

type RegisterProfile struct {
	FullName string
	Bio      string
	Location string
	Image    string
}

type RegisterRequest struct {
	Email    string
	Password string
	Role     string
	Profile  RegisterProfile
}

type UserWithProfile struct {
	User    User     `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
}

// UpdateProfileRequest is a partial update; nil fields keep the stored value.
type UpdateProfileRequest struct {
	FullName *string
	Bio      *string
	Location *string
	Image    *string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (UserWithProfile, error)
	GetByID(ctx context.Context, id string) (UserWithProfile, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (UserWithProfile, error)
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrInvalidFullName = errors.New("invalid_full_name")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidID       = errors.New("invalid_id")
	ErrEmailTaken      = errors.New("email_taken")
	ErrNotFound        = errors.New("user_not_found")
)
