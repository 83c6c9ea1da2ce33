package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/gatherly/gatherly/internal/auth/domain"
	authrepo "github.com/gatherly/gatherly/internal/auth/repository"
	authservice "github.com/gatherly/gatherly/internal/auth/service"
	userdomain "github.com/gatherly/gatherly/internal/user/domain"
	userrepo "github.com/gatherly/gatherly/internal/user/repository"
	userservice "github.com/gatherly/gatherly/internal/user/service"
)

var testNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(15)
	if err != nil {
		panic(err)
	}
	return node
}()

func newServices(t *testing.T, db *gorm.DB) (authdomain.Service, userdomain.Service) {
	t.Helper()

	users := userservice.New(userservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testNode,
		Repo:  userrepo.Provide(),
	})
	auth := authservice.New(authservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    testNode,
		Repo:     authrepo.Provide(),
		UserRepo: userrepo.Provide(),
	})
	return auth, users
}

func register(t *testing.T, users userdomain.Service, email string) userdomain.UserWithProfile {
	t.Helper()

	resp, err := users.Register(context.Background(), userdomain.RegisterRequest{
		Email:    email,
		Password: "correct horse",
		Profile:  userdomain.RegisterProfile{FullName: "Test Person"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	auth, users := newServices(t, db)

	registered := register(t, users, "login@example.com")

	result, err := auth.Login(ctx, authdomain.LoginRequest{
		Email:    "login@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected session token")
	}

	identity, err := auth.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.UserID != registered.User.ID {
		t.Fatalf("expected user %s, got %s", registered.User.ID, identity.UserID)
	}

	// The raw token never hits the database.
	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM sessions WHERE session_token_hash = ?`, result.Token).Scan(&count).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 0 {
		t.Fatal("raw token stored in sessions table")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	auth, users := newServices(t, db)

	register(t, users, "wrongpw@example.com")

	_, err := auth.Login(ctx, authdomain.LoginRequest{
		Email:    "wrongpw@example.com",
		Password: "not the password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = auth.Login(ctx, authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	auth, users := newServices(t, db)

	register(t, users, "logout@example.com")
	result, err := auth.Login(ctx, authdomain.LoginRequest{
		Email:    "logout@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := auth.Logout(ctx, result.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, err = auth.Authenticate(ctx, result.Token)
	if !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	auth, users := newServices(t, db)

	register(t, users, "expired@example.com")
	result, err := auth.Login(ctx, authdomain.LoginRequest{
		Email:    "expired@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := db.Exec(
		`UPDATE sessions SET expires_at = ?`, time.Now().UTC().Add(-time.Hour),
	).Error; err != nil {
		t.Fatalf("age session: %v", err)
	}

	_, err = auth.Authenticate(ctx, result.Token)
	if !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, users := newServices(t, db)

	register(t, users, "dup@example.com")

	_, err := users.Register(ctx, userdomain.RegisterRequest{
		Email:    "dup@example.com",
		Password: "another pass",
		Profile:  userdomain.RegisterProfile{FullName: "Other Person"},
	})
	if !errors.Is(err, userdomain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, users := newServices(t, db)

	registered := register(t, users, "profile@example.com")

	name := "Renamed Person"
	bio := "Occasional hiker."
	resp, err := users.UpdateProfile(ctx, registered.User.ID.String(), userdomain.UpdateProfileRequest{
		FullName: &name,
		Bio:      &bio,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if resp.Profile.FullName != "Renamed Person" || resp.Profile.Bio != "Occasional hiker." {
		t.Fatalf("unexpected profile after update: %+v", resp.Profile)
	}

	// Omitted fields keep their stored values.
	fetched, err := users.GetByID(ctx, registered.User.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Profile.FullName != "Renamed Person" {
		t.Fatalf("update not persisted: %+v", fetched.Profile)
	}
	if fetched.Profile.Location != registered.Profile.Location {
		t.Fatalf("location must be untouched, got %q", fetched.Profile.Location)
	}

	empty := "   "
	_, err = users.UpdateProfile(ctx, registered.User.ID.String(), userdomain.UpdateProfileRequest{
		FullName: &empty,
	})
	if !errors.Is(err, userdomain.ErrInvalidFullName) {
		t.Fatalf("expected ErrInvalidFullName, got %v", err)
	}

	_, err = users.UpdateProfile(ctx, testNode.Generate().String(), userdomain.UpdateProfileRequest{Bio: &bio})
	if !errors.Is(err, userdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_auth_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		`CREATE TABLE sessions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			session_token_hash TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			revoked_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_sessions_token ON sessions(session_token_hash)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
