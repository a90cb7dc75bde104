package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// CredentialRepository persists [models.Credential] records, one per user.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential for a user.
//
// Returns [shared.ErrNoCredential] when no row exists; callers treat this as
// "not authenticated".
func (r *CredentialRepository) Get(userID string) (*models.Credential, error) {
	query := `
		SELECT user_id, access_token, refresh_token_enc, scope, expires_at, created_at, updated_at
		FROM credentials
		WHERE user_id = ?
	`

	var cred models.Credential
	err := r.db.QueryRow(query, userID).Scan(
		&cred.UserID,
		&cred.AccessToken,
		&cred.RefreshTokenEnc,
		&cred.Scope,
		&cred.ExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNoCredential, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	return &cred, nil
}

// Upsert inserts or replaces the credential for cred.UserID.
//
// CreatedAt is preserved on update; UpdatedAt always advances.
func (r *CredentialRepository) Upsert(cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	query := `
		INSERT INTO credentials (user_id, access_token, refresh_token_enc, scope, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token_enc = excluded.refresh_token_enc,
			scope = excluded.scope,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		cred.UserID,
		cred.AccessToken,
		cred.RefreshTokenEnc,
		cred.Scope,
		cred.ExpiresAt,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// First returns the most recently updated credential.
//
// The CLI uses this to resolve the active user when no --user flag is given;
// returns [shared.ErrNoCredential] when no one has logged in yet.
func (r *CredentialRepository) First() (*models.Credential, error) {
	query := `
		SELECT user_id, access_token, refresh_token_enc, scope, expires_at, created_at, updated_at
		FROM credentials
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var cred models.Credential
	err := r.db.QueryRow(query).Scan(
		&cred.UserID,
		&cred.AccessToken,
		&cred.RefreshTokenEnc,
		&cred.Scope,
		&cred.ExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no users have logged in", shared.ErrNoCredential)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	return &cred, nil
}

// Delete removes a user's credential.
func (r *CredentialRepository) Delete(userID string) error {
	result, err := r.db.Exec(`DELETE FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNoCredential, userID)
	}

	return nil
}
