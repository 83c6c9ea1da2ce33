package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	InsertProfile(ctx context.Context, db *gorm.DB, profile *Profile) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindProfile(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Profile, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, profile *Profile) error
}
