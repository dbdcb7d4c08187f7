package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrSessionExpired indicates a well-formed credential past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionInvalid indicates a malformed or wrongly signed credential.
	ErrSessionInvalid = errors.New("session invalid")
)

// SessionClaims is the payload of an access credential.
type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies HS256 access credentials.
// Credentials are stateless: validity is signature plus expiry.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates a SessionIssuer.
func NewSessionIssuer(secret, issuer string, ttl time.Duration) (*SessionIssuer, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &SessionIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of minted credentials.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Mint produces a signed credential for userID valid for the configured TTL.
func (s *SessionIssuer) Mint(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("mint session: empty user id")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks the credential and returns the user id it was minted for.
// It returns ErrSessionExpired or ErrSessionInvalid, never panics.
func (s *SessionIssuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrSessionInvalid
	}

	claims := &SessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrSessionInvalid
	}

	if !token.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return "", ErrSessionInvalid
	}

	return claims.UserID, nil
}
