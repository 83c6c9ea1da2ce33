package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	participationrepo "github.com/gatherly/gatherly/internal/participation/repository"
	reviewdomain "github.com/gatherly/gatherly/internal/review/domain"
	reviewrepo "github.com/gatherly/gatherly/internal/review/repository"
	reviewservice "github.com/gatherly/gatherly/internal/review/service"
)

var testNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(13)
	if err != nil {
		panic(err)
	}
	return node
}()

func newService(t *testing.T, db *gorm.DB) reviewdomain.Service {
	t.Helper()

	return reviewservice.New(reviewservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        testNode,
		Repo:         reviewrepo.Provide(),
		Participants: participationrepo.Provide(),
	})
}

type fixture struct {
	eventID snowflake.ID
	userID  snowflake.ID
}

// seedAttendance seeds an event plus a participant with the given status.
// eventOffset places the event date relative to now.
func seedAttendance(t *testing.T, db *gorm.DB, participantStatus string, eventOffset time.Duration) fixture {
	t.Helper()

	now := time.Now().UTC()
	hostID := testNode.Generate()
	userID := testNode.Generate()
	eventID := testNode.Generate()

	require.NoError(t, db.Exec(
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		hostID, fmt.Sprintf("host_%d@example.com", hostID), "x", "HOST", now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, fmt.Sprintf("user_%d@example.com", userID), "x", "USER", now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO profiles (id, user_id, full_name, bio, location, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		testNode.Generate(), userID, "Reviewer Name", "", "", "", now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO events (id, host_id, category_id, title, slug, description, location, date,
		 min_participants, max_participants, fee, currency, image, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID, hostID, testNode.Generate(), "Wine Tasting", "wine-tasting", "Evening", "Madrid",
		now.Add(eventOffset), 1, 10, "15.00", "USD", "", "OPEN", now, now,
	).Error)
	if participantStatus != "" {
		require.NoError(t, db.Exec(
			`INSERT INTO event_participants (id, event_id, user_id, status, joined_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			testNode.Generate(), eventID, userID, participantStatus, now, now, now,
		).Error)
	}

	return fixture{eventID: eventID, userID: userID}
}

func TestCreateReview(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	fx := seedAttendance(t, db, "JOINED", -24*time.Hour)

	review, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(),
		UserID:  fx.userID.String(),
		Rating:  5,
		Comment: "Great evening, would join again.",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, fx.eventID, review.EventID)
}

func TestCreateReviewRejectsFutureEvent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	fx := seedAttendance(t, db, "JOINED", 24*time.Hour)

	_, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 4,
	})
	assert.ErrorIs(t, err, reviewdomain.ErrEventNotEnded)
}

func TestCreateReviewRequiresJoinedParticipant(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	for _, status := range []string{"", "PENDING", "EXPIRED"} {
		fx := seedAttendance(t, db, status, -24*time.Hour)
		_, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
			EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 4,
		})
		assert.ErrorIs(t, err, reviewdomain.ErrNotParticipant, "status %q", status)
	}
}

func TestCreateReviewRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	fx := seedAttendance(t, db, "JOINED", -24*time.Hour)

	_, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 4,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 3,
	})
	assert.ErrorIs(t, err, reviewdomain.ErrAlreadyReviewed)
}

func TestCreateReviewValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	fx := seedAttendance(t, db, "JOINED", -24*time.Hour)

	_, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 0,
	})
	assert.ErrorIs(t, err, reviewdomain.ErrInvalidRating)

	_, err = svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 6,
	})
	assert.ErrorIs(t, err, reviewdomain.ErrInvalidRating)

	_, err = svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 4, Comment: "ab",
	})
	assert.ErrorIs(t, err, reviewdomain.ErrInvalidComment)

	_, err = svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 4,
		Comment: strings.Repeat("長", 501),
	})
	assert.ErrorIs(t, err, reviewdomain.ErrInvalidComment)

	// Three characters is enough even when they span more than three bytes.
	review, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 4, Comment: "最高だ",
	})
	require.NoError(t, err)
	assert.Equal(t, "最高だ", review.Comment)
}

func TestListByEvent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	fx := seedAttendance(t, db, "JOINED", -24*time.Hour)
	_, err := svc.Create(ctx, reviewdomain.CreateReviewRequest{
		EventID: fx.eventID.String(), UserID: fx.userID.String(), Rating: 5, Comment: "Lovely.",
	})
	require.NoError(t, err)

	resp, err := svc.ListByEvent(ctx, reviewdomain.ListReviewRequest{EventID: fx.eventID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Reviews, 1)
	assert.Equal(t, int64(1), resp.Meta.Total)
	assert.Equal(t, "Reviewer Name", resp.Reviews[0].ReviewerName)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_review_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'USER',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE profiles (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			bio TEXT,
			location TEXT,
			image TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
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
		`CREATE TABLE reviews (
			id BIGINT PRIMARY KEY,
			event_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_review_event_user ON reviews(event_id, user_id)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
