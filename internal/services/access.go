package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/secrets"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

// expiryBuffer absorbs clock skew and in-flight request latency so a token
// never expires mid-use.
const expiryBuffer = 60 * time.Second

// CredentialStore abstracts credential persistence for the access manager.
// Implemented by repositories.CredentialRepository.
type CredentialStore interface {
	Get(userID string) (*models.Credential, error)
	Upsert(cred *models.Credential) error
}

// TokenRefresher exchanges a refresh token for a fresh token set.
// Implemented by [SpotifyService].
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// AccessManager returns currently valid access tokens for users, refreshing
// and re-persisting credentials transparently.
//
// There is no per-user locking: two simultaneous near-expiry calls may both
// refresh and the last writer wins. Refreshing twice is wasteful but safe.
type AccessManager struct {
	store     CredentialStore
	cipher    *secrets.Cipher
	refresher TokenRefresher
	logger    *log.Logger
	now       func() time.Time
}

// NewAccessManager creates an AccessManager with the provided collaborators.
func NewAccessManager(store CredentialStore, cipher *secrets.Cipher, refresher TokenRefresher, logger *log.Logger) *AccessManager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AccessManager{
		store:     store,
		cipher:    cipher,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// EnsureAccess returns a valid access token for the user.
//
// The stored token is returned unchanged while more than the expiry buffer
// remains; otherwise the refresh token is decrypted, exchanged with the
// provider, and the updated credential persisted. A provider rejection
// surfaces [shared.ErrRefreshFailed] and means the user must re-authenticate.
func (m *AccessManager) EnsureAccess(ctx context.Context, userID string) (string, error) {
	cred, err := m.store.Get(userID)
	if err != nil {
		return "", err
	}

	if cred.ExpiresAt.Sub(m.now()) > expiryBuffer {
		return cred.AccessToken, nil
	}

	refreshToken, err := m.cipher.Decrypt(cred.RefreshTokenEnc)
	if err != nil {
		return "", err
	}

	token, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	cred.AccessToken = token.AccessToken
	cred.ExpiresAt = token.Expiry
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = m.now().Add(time.Hour)
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		cred.Scope = scope
	}

	// The provider may omit refresh_token on refresh; the stored ciphertext
	// is preserved byte-for-byte in that case.
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		enc, err := m.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt rotated refresh token: %w", err)
		}
		cred.RefreshTokenEnc = enc
	}

	if err := m.store.Upsert(cred); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	m.logger.Debug("refreshed access token", "user", userID, "expires_at", cred.ExpiresAt)
	return cred.AccessToken, nil
}

// StoreGrant persists the token set from a completed authorization-code
// exchange, encrypting the refresh token at rest.
//
// When the provider omits a refresh token and a credential already exists,
// the prior ciphertext is kept so the user is not forced to re-consent.
func (m *AccessManager) StoreGrant(ctx context.Context, userID string, token *oauth2.Token) error {
	cred := &models.Credential{
		UserID:      userID,
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry,
	}
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = m.now().Add(time.Hour)
	}
	if scope, ok := token.Extra("scope").(string); ok {
		cred.Scope = scope
	}

	if token.RefreshToken != "" {
		enc, err := m.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		cred.RefreshTokenEnc = enc
	} else {
		prior, err := m.store.Get(userID)
		if err != nil {
			if errors.Is(err, shared.ErrNoCredential) {
				return fmt.Errorf("%w: grant carried no refresh token", shared.ErrAuthFailed)
			}
			return err
		}
		cred.RefreshTokenEnc = prior.RefreshTokenEnc
		cred.CreatedAt = prior.CreatedAt
	}

	return m.store.Upsert(cred)
}
