package service

import (
	"context"
	"time"

	"github.com/koinonia/koinonia/internal/directory"
	"github.com/koinonia/koinonia/internal/model"
)

// UserStore is the persistence contract for users.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// Directory resolves people in the external directory.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (id string, found bool, err error)
	CreatePerson(ctx context.Context, in directory.PersonInput) (string, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	NeedsRehash(digest string) bool
}

// TokenIssuer mints and verifies signed access credentials.
type TokenIssuer interface {
	Mint(userID string) (token string, expiresAt time.Time, err error)
	Verify(token string) (userID string, err error)
}

// RefreshStore persists opaque refresh tokens.
type RefreshStore interface {
	SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeRefreshToken(ctx context.Context, token string) (userID string, err error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// CommunityStore is the persistence contract for communities.
type CommunityStore interface {
	CreateCommunity(ctx context.Context, c *model.Community) error
	GetCommunityByID(ctx context.Context, id string) (*model.Community, error)
	ListCommunities(ctx context.Context) ([]*model.Community, error)
	AddMember(ctx context.Context, communityID, userID string) error
	ListMembers(ctx context.Context, communityID string) ([]*model.Member, error)
}

// PreachingStore is the persistence contract for preachings and tags.
type PreachingStore interface {
	CreatePreaching(ctx context.Context, p *model.Preaching) error
	GetPreachingByID(ctx context.Context, id string) (*model.Preaching, error)
	ListPreachings(ctx context.Context, search string) ([]*model.Preaching, error)
	AttachTags(ctx context.Context, preachingID string, candidates []*model.Tag) ([]*model.Tag, error)
	ListPreachingTags(ctx context.Context, preachingID string) ([]*model.Tag, error)
}

// TagStore is the persistence contract for tags.
type TagStore interface {
	UpsertTag(ctx context.Context, tag *model.Tag) (*model.Tag, error)
	ListTags(ctx context.Context) ([]*model.Tag, error)
}
