// Package auth provides credential hashing, session tokens and request identity.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id defaults (OWASP 2024 recommended minimum).
const (
	DefaultArgon2Time    = 3
	DefaultArgon2Memory  = 64 * 1024 // 64 MB
	DefaultArgon2Threads = 4

	argon2KeyLen  = 32
	argon2SaltLen = 16

	// maxArgon2Memory bounds the memory cost accepted from a stored digest (1 GB).
	maxArgon2Memory = 1024 * 1024
)

var (
	// ErrHashing indicates the hasher could not produce a digest.
	ErrHashing = errors.New("password hashing failed")
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Argon2Params is the tunable work factor.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultArgon2Params returns the production work factor.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    DefaultArgon2Time,
		Memory:  DefaultArgon2Memory,
		Threads: DefaultArgon2Threads,
	}
}

// Hasher hashes and verifies user passwords with Argon2id.
// Digests written by the previous bcrypt-based deployment still verify.
type Hasher struct {
	params Argon2Params
	rand   io.Reader
}

// NewHasher creates a Hasher. Zero fields fall back to the defaults.
func NewHasher(params Argon2Params) *Hasher {
	def := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	return &Hasher{params: params, rand: rand.Reader}
}

// Params returns the work factor used for new digests.
func (h *Hasher) Params() Argon2Params {
	return h.params
}

// Hash creates an Argon2id hash of the password in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", ErrHashing, err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		argon2KeyLen,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches digest.
// Any malformed or unsupported digest yields false.
func (h *Hasher) Verify(password, digest string) bool {
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	ok, err := compareArgon2(password, digest)
	return err == nil && ok
}

// NeedsRehash reports whether digest was produced with a different algorithm
// or work factor than the hasher currently uses.
func (h *Hasher) NeedsRehash(digest string) bool {
	if isBcryptDigest(digest) {
		return true
	}
	p, _, _, err := parseArgon2(digest)
	if err != nil {
		return true
	}
	return p != h.params
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// compareArgon2 checks the password against a PHC-encoded Argon2id digest
// using a constant-time comparison.
func compareArgon2(password, encodedHash string) (bool, error) {
	p, salt, expectedHash, err := parseArgon2(encodedHash)
	if err != nil {
		return false, err
	}

	computedHash := argon2.IDKey(
		[]byte(password),
		salt,
		p.Time,
		p.Memory,
		p.Threads,
		uint32(len(expectedHash)),
	)

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

func parseArgon2(encodedHash string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	// argon2.IDKey panics on zero time or threads
	if p.Time == 0 || p.Threads == 0 || p.Memory == 0 || p.Memory > maxArgon2Memory {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	return p, salt, hash, nil
}
