package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/koinonia/koinonia/internal/auth"
	"github.com/koinonia/koinonia/internal/cache"
	"github.com/koinonia/koinonia/internal/directory"
	"github.com/koinonia/koinonia/internal/metrics"
	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testHashParams = auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}

// fakeUserStore enforces the same uniqueness rules as the users table.
type fakeUserStore struct {
	mu        sync.Mutex
	byID      map[string]*model.User
	byEmail   map[string]string
	byPerson  map[string]string
	getErr    error
	createErr error
	// beforeCreate runs without the lock held, letting tests interleave writers.
	beforeCreate func(u *model.User)
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:     make(map[string]*model.User),
		byEmail:  make(map[string]string),
		byPerson: make(map[string]string),
	}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := *f.byID[id]
	return &u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *model.User) error {
	if f.beforeCreate != nil {
		f.beforeCreate(user)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}
	if user.PCOPersonID != nil {
		if _, ok := f.byPerson[*user.PCOPersonID]; ok {
			return repository.ErrExternalIDExists
		}
		f.byPerson[*user.PCOPersonID] = user.ID
	}
	cp := *user
	f.byID[user.ID] = &cp
	f.byEmail[user.Email] = user.ID
	return nil
}

func (f *fakeUserStore) UpdateUserProfile(_ context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.Phone != nil {
		phone := *update.Phone
		u.Phone = &phone
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// seed stores a user directly, bypassing hooks and constraint checks.
func (f *fakeUserStore) seed(u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
	f.byEmail[u.Email] = u.ID
	if u.PCOPersonID != nil {
		f.byPerson[*u.PCOPersonID] = u.ID
	}
}

// fakeDirectory is an in-memory directory with injectable failures.
type fakeDirectory struct {
	mu      sync.Mutex
	people  map[string][]string // email -> person ids
	nextID  int
	finds   int
	creates int

	findErr   error
	createErr error
	// findErrAfter fails every lookup after the first n when set.
	findErrAfter int
	// raceOnCreate simulates another writer creating the person first.
	raceOnCreate bool
	delay        time.Duration
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{people: make(map[string][]string), findErrAfter: -1}
}

func (d *fakeDirectory) FindByEmail(ctx context.Context, email string) (string, bool, error) {
	if err := d.wait(ctx); err != nil {
		return "", false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds++
	if d.findErr != nil && (d.findErrAfter < 0 || d.finds > d.findErrAfter) {
		return "", false, d.findErr
	}
	ids := d.people[email]
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func (d *fakeDirectory) CreatePerson(ctx context.Context, in directory.PersonInput) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.creates++
	if d.raceOnCreate {
		d.add(in.Email)
		return "", fmt.Errorf("create person: %w", directory.ErrConflict)
	}
	if d.createErr != nil {
		return "", d.createErr
	}
	if len(d.people[in.Email]) > 0 {
		return "", fmt.Errorf("create person: %w", directory.ErrConflict)
	}
	return d.add(in.Email), nil
}

func (d *fakeDirectory) add(email string) string {
	d.nextID++
	id := fmt.Sprintf("P-%d", d.nextID)
	d.people[email] = append(d.people[email], id)
	return id
}

func (d *fakeDirectory) wait(ctx context.Context) error {
	if d.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(d.delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", directory.ErrUnavailable, ctx.Err())
	}
}

func (d *fakeDirectory) personCount(email string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.people[email])
}

func (d *fakeDirectory) counts() (finds, creates int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finds, d.creates
}

// fakeRefreshStore keeps refresh tokens in memory.
type fakeRefreshStore struct {
	mu      sync.Mutex
	tokens  map[string]string
	saveErr error
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: make(map[string]string)}
}

func (s *fakeRefreshStore) SaveRefreshToken(_ context.Context, token, userID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.tokens[token] = userID
	return nil
}

func (s *fakeRefreshStore) ConsumeRefreshToken(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	delete(s.tokens, token)
	return userID, nil
}

func (s *fakeRefreshStore) DeleteRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

type failingHasher struct{ PasswordHasher }

func (failingHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }

type registrationEnv struct {
	users    *fakeUserStore
	dir      *fakeDirectory
	refresh  *fakeRefreshStore
	issuer   *auth.SessionIssuer
	hasher   *auth.Hasher
	sessions *SessionManager
	metrics  *metrics.InMemoryRecorder
	svc      *RegistrationService
}

func newRegistrationEnv(t *testing.T) *registrationEnv {
	t.Helper()

	issuer, err := auth.NewSessionIssuer(testSecret, "koinonia-test", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewSessionIssuer: %v", err)
	}

	env := &registrationEnv{
		users:   newFakeUserStore(),
		dir:     newFakeDirectory(),
		refresh: newFakeRefreshStore(),
		issuer:  issuer,
		hasher:  auth.NewHasher(testHashParams),
		metrics: metrics.NewInMemory(),
	}
	env.sessions = NewSessionManager(issuer, env.refresh, 7*24*time.Hour, nil)
	env.svc = NewRegistrationService(env.users, env.dir, env.hasher, env.sessions, env.metrics, nil)
	return env
}
