package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	// StatusOpen is the only status that accepts joins. Status is
	// authoritative over any live capacity count.
	StatusOpen      Status = "OPEN"
	StatusFull      Status = "FULL"
	StatusCancelled Status = "CANCELLED"
)

type Category struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

type Event struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	HostID          snowflake.ID    `gorm:"not null;index" json:"host_id"`
	CategoryID      snowflake.ID    `gorm:"not null;index" json:"category_id"`
	Title           string          `gorm:"type:text;not null" json:"title"`
	Slug            string          `gorm:"type:text;not null;index" json:"slug"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Location        string          `gorm:"type:text;not null" json:"location"`
	Date            time.Time       `gorm:"not null;index" json:"date"`
	MinParticipants int             `gorm:"not null" json:"min_participants"`
	MaxParticipants int             `gorm:"not null" json:"max_participants"`
	Fee             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fee"`
	Currency        string          `gorm:"type:text;not null" json:"currency"`
	Image           string          `gorm:"type:text" json:"image,omitempty"`
	Status          Status          `gorm:"type:text;not null" json:"status"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

// ListItem is an event joined with its category name and host display name.
type ListItem struct {
	Event
	CategoryName string `json:"category_name"`
	HostName     string `json:"host_name"`
}
