package catalog

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
)

const (
	argonMemory      = 64 * 1024
	argonIterations  = 3
	argonParallelism = 2
)

// Hasher derives argon2id credentials. The encoded hash carries its own
// parameters: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
type Hasher struct {
	saltLength uint32
	keyLength  uint32
}

func NewHasher(saltLength, keyLength int) *Hasher {
	if saltLength <= 0 {
		saltLength = 16
	}
	if keyLength <= 0 {
		keyLength = 32
	}
	return &Hasher{saltLength: uint32(saltLength), keyLength: uint32(keyLength)}
}

// Hash returns the base64 salt and the encoded argon2id hash.
func (h *Hasher) Hash(password string) (string, string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, h.keyLength)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		encodedSalt, base64.RawStdEncoding.EncodeToString(key))
	return encodedSalt, encoded, nil
}

func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("malformed argon2id hash")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("failed to parse argon2id parameters")
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("failed to decode argon2id salt")
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("failed to decode argon2id hash")
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
