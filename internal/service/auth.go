package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/koinonia/koinonia/internal/cache"
	"github.com/koinonia/koinonia/internal/metrics"
	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
)

// LoginOutput is an authenticated user with fresh tokens.
type LoginOutput struct {
	User   *model.User
	Tokens *Tokens
}

// AuthService handles login, token refresh and logout.
type AuthService struct {
	users    UserStore
	hasher   PasswordHasher
	sessions *SessionManager
	refresh  RefreshStore
	metrics  metrics.Recorder
	logger   *slog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher PasswordHasher, sessions *SessionManager, refresh RefreshStore, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		refresh:  refresh,
		metrics:  recorder,
		logger:   logger,
	}
}

// Login checks an email and password and opens a session.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, required("email")
	}
	if password == "" {
		return nil, required("password")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Spend the same hashing time as a real check.
			s.hasher.Verify(password, s.dummyHash())
			s.metrics.IncLogin("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncLogin("error")
		return nil, storageError("lookup user by email", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.IncLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	s.upgradeHash(ctx, user, password)

	tokens, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		s.metrics.IncLogin("error")
		return nil, err
	}

	s.metrics.IncLogin("success")
	return &LoginOutput{User: user, Tokens: tokens}, nil
}

// upgradeHash re-hashes legacy or weaker digests after a successful login.
func (s *AuthService) upgradeHash(ctx context.Context, user *model.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		s.logger.Warn("password rehash not stored", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = digest
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("koinonia-timing-equalizer")
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

// Refresh redeems a refresh token for a new token pair. Each refresh
// token works once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, required("refresh_token")
	}
	if s.refresh == nil {
		return nil, ErrInvalidSession
	}

	userID, err := s.refresh.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncTokenRefresh("invalid")
			return nil, ErrInvalidSession
		}
		s.metrics.IncTokenRefresh("error")
		return nil, storageError("consume refresh token", err)
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncTokenRefresh("invalid")
			return nil, ErrInvalidSession
		}
		s.metrics.IncTokenRefresh("error")
		return nil, storageError("lookup user", err)
	}

	tokens, err := s.sessions.Issue(ctx, userID)
	if err != nil {
		s.metrics.IncTokenRefresh("error")
		return nil, err
	}

	s.metrics.IncTokenRefresh("success")
	return tokens, nil
}

// Logout revokes a refresh token. Access credentials expire on their own.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return required("refresh_token")
	}
	if s.refresh == nil {
		return nil
	}
	if err := s.refresh.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return storageError("delete refresh token", err)
	}
	return nil
}
