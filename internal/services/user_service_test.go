package services

import (
	"context"
	"testing"
	"time"

	"spendsmart/internal/models"
	"spendsmart/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser(ctx, "alice@example.com", "password123", " Alice Smith ")
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected user ID")
		}
		if user.FullName != "Alice Smith" {
			t.Errorf("expected trimmed full name, got %q", user.FullName)
		}
		if !user.IsActive || !user.AlertsEnabled {
			t.Error("expected active user with alerts enabled")
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")) != nil {
			t.Error("expected stored password to be a bcrypt hash of the input")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser(ctx, "dup@example.com", "password123", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser(ctx, "DUP@example.com", "password456", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser(ctx, "", "password123", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.CreateUser(ctx, "a@example.com", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	found, err := svc.GetUserByID(ctx, user.ID)
	testutil.AssertNoError(t, err)
	if found.Email != user.Email {
		t.Errorf("expected %s, got %s", user.Email, found.Email)
	}

	_, err = svc.GetUserByID(ctx, "0190a1b2-0000-7000-8000-000000000000")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestAttemptLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success_resets_attempts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("failed_login_attempts", 3)

		got, err := svc.AttemptLogin(ctx, user.Email, testutil.TestPassword)
		testutil.AssertNoError(t, err)
		if got.LastLoginAt == nil {
			t.Error("expected last_login_at to be set")
		}

		var stored models.User
		db.First(&stored, "id = ?", user.ID)
		if stored.FailedLoginAttempts != 0 {
			t.Errorf("expected attempts reset, got %d", stored.FailedLoginAttempts)
		}
	})

	t.Run("lockout_after_5_failures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db).(*userService)
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		svc.now = fixedClock(now)
		user := testutil.CreateTestUser(t, db)

		for i := 0; i < maxFailedLogins; i++ {
			_, err := svc.AttemptLogin(ctx, user.Email, "wrong")
			testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
		}

		_, err := svc.AttemptLogin(ctx, user.Email, testutil.TestPassword)
		testutil.AssertAppError(t, err, "ACCOUNT_LOCKED")

		svc.now = fixedClock(now.Add(lockoutDuration + time.Second))
		_, err = svc.AttemptLogin(ctx, user.Email, testutil.TestPassword)
		testutil.AssertNoError(t, err)
	})

	t.Run("nonexistent_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.AttemptLogin(ctx, "ghost@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestStoreAndGetRefreshTokenHash(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	testutil.AssertNoError(t, svc.StoreRefreshTokenHash(ctx, user.ID, "abc123"))
	hash, err := svc.GetRefreshTokenHash(ctx, user.ID)
	testutil.AssertNoError(t, err)
	if hash != "abc123" {
		t.Errorf("expected abc123, got %s", hash)
	}

	err = svc.StoreRefreshTokenHash(ctx, "0190a1b2-0000-7000-8000-000000000000", "x")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestUpdateAlertSettings(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	updated, err := svc.UpdateAlertSettings(ctx, user.ID, false)
	testutil.AssertNoError(t, err)
	if updated.AlertsEnabled {
		t.Error("expected alerts disabled")
	}

	updated, err = svc.UpdateAlertSettings(ctx, user.ID, true)
	testutil.AssertNoError(t, err)
	if !updated.AlertsEnabled {
		t.Error("expected alerts re-enabled")
	}
}
