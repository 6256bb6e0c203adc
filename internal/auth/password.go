package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, OWASP 2025 recommendation.
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

// argonParams are the cost parameters recorded in a PHC string.
type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

var currentParams = argonParams{time: argonTime, memory: argonMemory, threads: argonThreads}

// HashPassword hashes a device shared secret with Argon2id and returns it
// in PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the PHC hash. A hash that
// cannot be parsed returns an error wrapping ErrInvalidHash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	params, salt, key, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(key))) //nolint:gosec // G115: key length always fits uint32
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with parameters
// other than the current ones and should be replaced on next update.
func NeedsRehash(encodedHash string) bool {
	params, _, _, err := decodePHC(encodedHash)
	return err != nil || params != currentParams
}

// decodePHC splits an Argon2id PHC string into its parameters, salt and key.
func decodePHC(encoded string) (params argonParams, salt, key []byte, err error) {
	fields := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	if len(fields) != 5 { //nolint:mnd // alg, version, params, salt, key
		return params, nil, nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidHash, len(fields))
	}
	if fields[0] != "argon2id" {
		return params, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, fields[0])
	}

	var version int
	if _, err := fmt.Sscanf(fields[1], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: version %q", ErrInvalidHash, fields[1])
	}
	if _, err := fmt.Sscanf(fields[2], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return params, nil, nil, fmt.Errorf("%w: parameters %q", ErrInvalidHash, fields[2])
	}

	if salt, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return params, nil, nil, fmt.Errorf("%w: key: %w", ErrInvalidHash, err)
	}
	if len(key) == 0 {
		return params, nil, nil, fmt.Errorf("%w: empty key", ErrInvalidHash)
	}
	return params, salt, key, nil
}
