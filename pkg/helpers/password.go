package helpers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP minimum for argon2id). Stored hashes carry their own
// parameters, so changing these does not break existing users.
const (
	argonMemoryKiB uint32 = 19 * 1024
	argonTime      uint32 = 2
	argonThreads   uint8  = 1
	argonKeyLen    uint32 = 32
	argonSaltLen          = 16
)

// Ceilings for parameters read back from stored hashes. A corrupt hash must
// not make verification allocate unbounded memory.
const (
	maxArgonMemoryKiB = 1 << 21
	maxArgonTime      = 16
	maxArgonKeyLen    = 1024
)

var (
	// ErrInvalidHash is returned when a stored hash is not a parseable PHC string.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrMismatchedHashAndPassword is returned when the candidate does not match.
	ErrMismatchedHashAndPassword = errors.New("hash and password mismatch")
)

var b64 = base64.RawStdEncoding

// HashPassword hashes the plain text password with argon2id and a fresh salt.
// The result is a self-describing PHC string:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func HashPassword(plain string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemoryKiB, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// CompareHashAndPassword checks plain against a PHC encoded argon2 hash.
// It returns nil on match, ErrMismatchedHashAndPassword on mismatch and an
// error wrapping ErrInvalidHash when the hash cannot be parsed.
func CompareHashAndPassword(hash string, plain string) error {
	p, err := parsePHC(hash)
	if err != nil {
		return err
	}

	var candidate []byte
	switch p.variant {
	case "argon2id":
		candidate = argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	case "argon2i":
		candidate = argon2.Key([]byte(plain), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	}
	if subtle.ConstantTimeCompare(candidate, p.key) != 1 {
		return ErrMismatchedHashAndPassword
	}

	return nil
}

type phcHash struct {
	variant string
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parsePHC(s string) (*phcHash, error) {
	// "", variant, [v=19], params, salt, hash
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: unexpected segment count", ErrInvalidHash)
	}

	p := &phcHash{variant: parts[1]}
	if p.variant != "argon2id" && p.variant != "argon2i" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, p.variant)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	var seen int
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed parameter %q", ErrInvalidHash, kv)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s: %v", ErrInvalidHash, k, err)
		}
		switch k {
		case "m":
			p.memory = uint32(n)
			seen |= 1
		case "t":
			p.time = uint32(n)
			seen |= 2
		case "p":
			if n == 0 || n > 255 {
				return nil, fmt.Errorf("%w: parallelism out of range", ErrInvalidHash)
			}
			p.threads = uint8(n)
			seen |= 4
		}
	}
	if seen != 7 || p.time == 0 || p.memory == 0 {
		return nil, fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	if p.memory > maxArgonMemoryKiB || p.time > maxArgonTime {
		return nil, fmt.Errorf("%w: parameters exceed limits", ErrInvalidHash)
	}

	var err error
	if p.salt, err = b64.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if p.key, err = b64.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: hash: %v", ErrInvalidHash, err)
	}
	if len(p.key) == 0 || len(p.key) > maxArgonKeyLen {
		return nil, fmt.Errorf("%w: hash length %d", ErrInvalidHash, len(p.key))
	}

	return p, nil
}
