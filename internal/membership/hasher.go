// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// MinPepperLength is the shortest accepted process-wide pepper.
const MinPepperLength = 8

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("HASH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// Argon2Params holds the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params returns the OWASP-recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be recomputed with the current parameters.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id over password+pepper.
// It also verifies legacy bcrypt hashes produced the same way.
type Argon2idHasher struct {
	pepper string
	params Argon2Params
}

var _ PasswordHasher = (*Argon2idHasher)(nil)

// NewArgon2idHasher creates a hasher with the default parameters.
func NewArgon2idHasher(pepper string) (*Argon2idHasher, error) {
	return NewArgon2idHasherWithParams(pepper, DefaultArgon2Params())
}

// NewArgon2idHasherWithParams creates a hasher with explicit cost parameters.
func NewArgon2idHasherWithParams(pepper string, params Argon2Params) (*Argon2idHasher, error) {
	if len(pepper) < MinPepperLength {
		return nil, oops.Code("HASH_INVALID_PEPPER").
			With("min_length", MinPepperLength).
			Errorf("salt must be at least %d characters", MinPepperLength)
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 || params.SaltLen == 0 || params.KeyLen == 0 {
		return nil, oops.Code("HASH_INVALID_PARAMS").Errorf("argon2 parameters must be positive")
	}
	return &Argon2idHasher{pepper: pepper, params: params}, nil
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("HASH_SALT_FAILED").Wrap(err)
	}

	p := h.params
	key := argon2.IDKey(h.peppered(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
// The social login sentinel never matches.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case encodedHash == SocialPasswordSentinel:
		return false, nil
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), h.peppered(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, oops.Code("HASH_INVALID").Wrap(err)
		}
		return true, nil
	}

	phc, err := parseArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(h.peppered(password), phc.salt, phc.params.Time, phc.params.Memory,
		phc.params.Threads, uint32(len(phc.key)))

	return subtle.ConstantTimeCompare(computed, phc.key) == 1, nil
}

// NeedsUpgrade returns true for bcrypt hashes and argon2id hashes weaker than the
// hasher's parameters. Unrecognized hashes are left alone.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return true
	}
	phc, err := parseArgon2id(encodedHash)
	if err != nil {
		return false
	}
	return phc.params.Memory < h.params.Memory ||
		phc.params.Time < h.params.Time ||
		phc.params.Threads < h.params.Threads
}

func (h *Argon2idHasher) peppered(password string) []byte {
	return []byte(password + h.pepper)
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func parseArgon2id(encodedHash string) (*argon2Hash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, oops.Code("HASH_INVALID").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("HASH_INVALID").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("HASH_INVALID").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("HASH_INVALID").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, oops.Code("HASH_INVALID").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return nil, oops.Code("HASH_INVALID").Errorf("threads value %d out of range", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("HASH_INVALID").Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("HASH_INVALID").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return nil, oops.Code("HASH_INVALID").Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2Hash{
		params: Argon2Params{
			Time:    iterations,
			Memory:  memory,
			Threads: uint8(threads),
			SaltLen: uint32(len(salt)),
			KeyLen:  uint32(len(key)),
		},
		salt: salt,
		key:  key,
	}, nil
}
