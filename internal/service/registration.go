// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/koinonia/koinonia/internal/directory"
	"github.com/koinonia/koinonia/internal/metrics"
	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
)

// Directory resolution modes reported to metrics.
const (
	resolutionMatched  = "matched"
	resolutionCreated  = "created"
	resolutionConflict = "conflict_resolved"
)

// RegisterInput is the raw registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string // optional
}

// RegisterOutput is a created user with its first session.
type RegisterOutput struct {
	User   *model.User
	Tokens *Tokens
}

// RegistrationService creates local users reconciled against the directory.
type RegistrationService struct {
	users     UserStore
	directory Directory
	hasher    PasswordHasher
	sessions  *SessionManager
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(users UserStore, dir Directory, hasher PasswordHasher, sessions *SessionManager, recorder metrics.Recorder, logger *slog.Logger) *RegistrationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{
		users:     users,
		directory: dir,
		hasher:    hasher,
		sessions:  sessions,
		metrics:   recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a user exactly once per email.
//
// The directory is the source of truth for identity: an existing directory
// person with the same email is adopted, never duplicated. There is no
// transaction spanning the directory and the database, so races are settled
// by the users table's unique constraints and by one re-lookup after a
// directory conflict. A directory person created for a registration that
// later loses the insert race is left in place; the next attempt for that
// email adopts it.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (out *RegisterOutput, err error) {
	start := s.now()
	defer func() {
		s.metrics.ObserveRegistrationDuration(time.Since(start))
		s.metrics.IncRegistration(registrationOutcome(err))
	}()

	in, err = normalizeRegisterInput(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storageError("lookup user by email", err)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashing, err)
	}

	personID, err := s.resolvePerson(ctx, in)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        in.Email,
		PasswordHash: passwordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PCOPersonID:  &personID,
		CreatedAt:    s.now().UTC(),
	}
	if in.Phone != "" {
		phone := in.Phone
		user.Phone = &phone
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrDuplicateEmail
		case errors.Is(err, repository.ErrExternalIDExists):
			s.logger.Error("directory person already linked to another user",
				"pco_person_id", personID,
				"user_id", user.ID,
			)
			return nil, ErrExternalIdentityConflict
		default:
			return nil, storageError("create user", err)
		}
	}

	tokens, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &RegisterOutput{User: user, Tokens: tokens}, nil
}

// resolvePerson finds or creates the directory person for in.Email.
func (s *RegistrationService) resolvePerson(ctx context.Context, in RegisterInput) (string, error) {
	id, found, err := s.directory.FindByEmail(ctx, in.Email)
	if err != nil {
		return "", externalIdentityError("lookup", err)
	}
	if found {
		s.metrics.IncDirectoryResolution(resolutionMatched)
		return id, nil
	}

	id, err = s.directory.CreatePerson(ctx, directory.PersonInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
	})
	if err == nil {
		s.metrics.IncDirectoryResolution(resolutionCreated)
		return id, nil
	}
	if !errors.Is(err, directory.ErrConflict) {
		return "", externalIdentityError("create", err)
	}

	// Another writer created the person between our lookup and create.
	id, found, err = s.directory.FindByEmail(ctx, in.Email)
	if err != nil {
		return "", externalIdentityError("lookup after conflict", err)
	}
	if !found {
		return "", fmt.Errorf("%w: directory reported a conflict but has no person for the email", ErrExternalIdentity)
	}
	s.metrics.IncDirectoryResolution(resolutionConflict)
	return id, nil
}

// externalIdentityError wraps both ErrExternalIdentity and the directory cause.
func externalIdentityError(step string, cause error) error {
	return fmt.Errorf("%w: directory %s: %w", ErrExternalIdentity, step, cause)
}

func normalizeRegisterInput(in RegisterInput) (RegisterInput, error) {
	out := RegisterInput{
		Email:     strings.TrimSpace(in.Email),
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
	}

	switch {
	case out.Email == "":
		return out, required("email")
	case strings.TrimSpace(out.Password) == "":
		return out, required("password")
	case out.FirstName == "":
		return out, required("first_name")
	case out.LastName == "":
		return out, required("last_name")
	}
	return out, nil
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrExternalIdentityConflict):
		return "external_identity_conflict"
	case errors.Is(err, ErrExternalIdentity):
		return "external_identity"
	case errors.Is(err, ErrHashing):
		return "hashing"
	case errors.Is(err, ErrSessionIssue):
		return "session"
	default:
		return "storage"
	}
}
