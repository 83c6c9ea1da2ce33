package service_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var seedCounter int64

// One shared node so sequential Generate calls never collide.
var testNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(42)
	if err != nil {
		panic(err)
	}
	return node
}()

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_participation_%d_%d?mode=memory&cache=shared",
		time.Now().UnixNano(), atomic.AddInt64(&seedCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'USER',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_users_email ON users(email)`,
		`CREATE TABLE events (
			id BIGINT PRIMARY KEY,
			host_id BIGINT NOT NULL,
			category_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			description TEXT NOT NULL,
			location TEXT NOT NULL,
			date TIMESTAMP NOT NULL,
			min_participants INTEGER NOT NULL,
			max_participants INTEGER NOT NULL,
			fee NUMERIC(12,2) NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			image TEXT,
			status TEXT NOT NULL DEFAULT 'OPEN',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE event_participants (
			id BIGINT PRIMARY KEY,
			event_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			joined_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_event_user ON event_participants(event_id, user_id)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			event_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			provider_session_id TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) snowflake.ID {
	t.Helper()

	id := testNode.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, "x", "USER", now, now,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

type seedEventOpts struct {
	Status string
	Max    int
	Fee    string
}

func seedEvent(t *testing.T, db *gorm.DB, opts seedEventOpts) snowflake.ID {
	t.Helper()

	node := testNode
	hostID := node.Generate()
	id := node.Generate()
	fee := opts.Fee
	if fee == "" {
		fee = "10.00"
	}
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		hostID, fmt.Sprintf("host_%d@example.com", hostID), "x", "HOST", now, now,
	).Error
	if err != nil {
		t.Fatalf("seed host: %v", err)
	}
	err = db.Exec(
		`INSERT INTO events (id, host_id, category_id, title, slug, description, location, date,
		 min_participants, max_participants, fee, currency, image, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, hostID, node.Generate(), "Trail Run", "trail-run", "Morning run", "Oslo",
		now.Add(48*time.Hour), 1, opts.Max, fee, "USD", "", opts.Status, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return id
}

func seedParticipant(t *testing.T, db *gorm.DB, eventID, userID snowflake.ID, status string) snowflake.ID {
	t.Helper()

	id := testNode.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO event_participants (id, event_id, user_id, status, joined_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, eventID, userID, status, nil, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	return id
}

func seedPayment(t *testing.T, db *gorm.DB, eventID, userID snowflake.ID, status string, createdAt time.Time) snowflake.ID {
	t.Helper()

	id := testNode.Generate()
	err := db.Exec(
		`INSERT INTO payments (id, event_id, user_id, amount, currency, status, provider_session_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, eventID, userID, "10.00", "USD", status, "", createdAt, createdAt,
	).Error
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return id
}

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d, got %d", expected, count)
	}
}
