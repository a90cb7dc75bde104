package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testCredential(userID string) *models.Credential {
	return &models.Credential{
		UserID:          userID,
		AccessToken:     "access-" + userID,
		RefreshTokenEnc: "blob-" + userID,
		Scope:           "playlist-read-private user-read-email",
		ExpiresAt:       time.Now().Add(time.Hour),
	}
}

func TestCredentialRepository(t *testing.T) {
	t.Run("Get missing user", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))

		_, err := repo.Get("nobody")
		if !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential, got %v", err)
		}
	})

	t.Run("Upsert then Get", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))
		cred := testCredential("user1")

		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.Get("user1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if got.AccessToken != cred.AccessToken {
			t.Errorf("AccessToken = %s, want %s", got.AccessToken, cred.AccessToken)
		}
		if got.RefreshTokenEnc != cred.RefreshTokenEnc {
			t.Errorf("RefreshTokenEnc = %s, want %s", got.RefreshTokenEnc, cred.RefreshTokenEnc)
		}
		if got.Scope != cred.Scope {
			t.Errorf("Scope = %s, want %s", got.Scope, cred.Scope)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("timestamps should be populated")
		}
	})

	t.Run("Upsert replaces existing row", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))
		cred := testCredential("user1")

		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("first Upsert failed: %v", err)
		}
		created := cred.CreatedAt

		updated := testCredential("user1")
		updated.AccessToken = "rotated"
		updated.ExpiresAt = time.Now().Add(2 * time.Hour)

		if err := repo.Upsert(updated); err != nil {
			t.Fatalf("second Upsert failed: %v", err)
		}

		got, err := repo.Get("user1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.AccessToken != "rotated" {
			t.Errorf("AccessToken = %s, want rotated", got.AccessToken)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt changed on update: %v != %v", got.CreatedAt, created)
		}
	})

	t.Run("Upsert validation", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))

		bad := testCredential("user1")
		bad.AccessToken = ""
		if err := repo.Upsert(bad); err == nil {
			t.Error("expected validation error for missing access token")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))

		if err := repo.Upsert(testCredential("user1")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := repo.Delete("user1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get("user1"); !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential after delete, got %v", err)
		}
		if err := repo.Delete("user1"); !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential for double delete, got %v", err)
		}
	})

	t.Run("First returns most recently updated", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))

		if _, err := repo.First(); !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential on empty table, got %v", err)
		}

		if err := repo.Upsert(testCredential("alpha")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		if err := repo.Upsert(testCredential("beta")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.First()
		if err != nil {
			t.Fatalf("First failed: %v", err)
		}
		if got.UserID != "beta" {
			t.Errorf("UserID = %s, want beta", got.UserID)
		}

		time.Sleep(5 * time.Millisecond)
		refreshed := testCredential("alpha")
		refreshed.AccessToken = "rotated"
		if err := repo.Upsert(refreshed); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err = repo.First()
		if err != nil {
			t.Fatalf("First failed: %v", err)
		}
		if got.UserID != "alpha" {
			t.Errorf("UserID = %s, want alpha after re-login", got.UserID)
		}
	})

	t.Run("rows are per user", func(t *testing.T) {
		repo := NewCredentialRepository(newTestDB(t))

		if err := repo.Upsert(testCredential("alpha")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := repo.Upsert(testCredential("beta")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		a, err := repo.Get("alpha")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if a.AccessToken != "access-alpha" {
			t.Errorf("wrong credential returned: %s", a.AccessToken)
		}
	})
}
