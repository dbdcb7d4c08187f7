package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Tokens is the credential pair handed to a client.
// RefreshToken is empty when the refresh store was unavailable.
type Tokens struct {
	AccessToken      string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionManager issues access credentials together with refresh tokens.
type SessionManager struct {
	issuer     TokenIssuer
	store      RefreshStore
	refreshTTL time.Duration
	logger     *slog.Logger
	newToken   func() string
	now        func() time.Time
}

// NewSessionManager creates a SessionManager. A nil store disables refresh tokens.
func NewSessionManager(issuer TokenIssuer, store RefreshStore, refreshTTL time.Duration, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		issuer:     issuer,
		store:      store,
		refreshTTL: refreshTTL,
		logger:     logger,
		newToken:   func() string { return uuid.NewString() },
		now:        time.Now,
	}
}

// Issue mints an access credential for userID and stores a fresh refresh
// token. Losing the refresh token is logged, not fatal: the access
// credential alone is a valid session.
func (m *SessionManager) Issue(ctx context.Context, userID string) (*Tokens, error) {
	access, expiresAt, err := m.issuer.Mint(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionIssue, err)
	}

	tokens := &Tokens{AccessToken: access, ExpiresAt: expiresAt}
	if m.store == nil || m.refreshTTL <= 0 {
		return tokens, nil
	}

	refresh := m.newToken()
	if err := m.store.SaveRefreshToken(ctx, refresh, userID, m.refreshTTL); err != nil {
		m.logger.Warn("refresh token not stored", "user_id", userID, "error", err)
		return tokens, nil
	}

	tokens.RefreshToken = refresh
	tokens.RefreshExpiresAt = m.now().Add(m.refreshTTL)
	return tokens, nil
}

// VerifyAccess returns the user id carried by an access credential.
func (m *SessionManager) VerifyAccess(token string) (string, error) {
	userID, err := m.issuer.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return userID, nil
}
