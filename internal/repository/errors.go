package repository

import "errors"

// Errors returned by repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailExists       = errors.New("email already exists")
	ErrExternalIDExists  = errors.New("external person id already linked")
	ErrCommunityNotFound = errors.New("community not found")
	ErrGroupIDExists     = errors.New("pco group id already exists")
	ErrPreachingNotFound = errors.New("preaching not found")
	ErrVideoIDExists     = errors.New("youtube video id already exists")
)
