package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ArgonParams are the cost parameters written into every encoded hash.
type ArgonParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var argonParams = ArgonParams{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

var errMalformedHash = errors.New("malformed password hash")

// ConfigurePasswordHashing overrides the cost used for new hashes. Zero values are ignored.
// Existing hashes keep verifying with the parameters they were encoded with.
func ConfigurePasswordHashing(memoryKiB, iterations uint32) {
	if memoryKiB > 0 {
		argonParams.Memory = memoryKiB
	}
	if iterations > 0 {
		argonParams.Iterations = iterations
	}
}

// HashPassword derives an Argon2id digest under a fresh random salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonParams.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return HashPasswordWithSalt(password, salt), nil
}

// HashPasswordWithSalt is deterministic: the same password and salt always encode identically.
func HashPasswordWithSalt(password string, salt []byte) string {
	return encodeHash(argonParams, salt, deriveKey(password, salt, argonParams))
}

// CheckPassword recomputes the digest with the salt and cost stored in encoded.
func CheckPassword(password, encoded string) bool {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(key, deriveKey(password, salt, params)) == 1
}

func deriveKey(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

func encodeHash(p ArgonParams, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}

	var parallelism int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &parallelism); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if parallelism < 1 || parallelism > 255 || p.Iterations == 0 || p.Memory == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.Parallelism = uint8(parallelism)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
