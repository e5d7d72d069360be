package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const djangoPBKDF2ID = "pbkdf2_sha256"

// Scheme identifies the algorithm of a stored password hash.
type Scheme int

const (
	SchemeUnknown Scheme = iota
	SchemeArgon2id
	SchemeBcrypt
	SchemeDjangoPBKDF2
)

// Detect classifies an encoded hash by its prefix.
func Detect(encodedHash string) Scheme {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return SchemeArgon2id
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return SchemeBcrypt
	case strings.HasPrefix(encodedHash, djangoPBKDF2ID+"$"):
		return SchemeDjangoPBKDF2
	default:
		return SchemeUnknown
	}
}

func verifyBcrypt(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// verifyDjangoPBKDF2 checks hashes imported from Django user tables:
//
//	pbkdf2_sha256$<iterations>$<salt>$<base64 digest>
func verifyDjangoPBKDF2(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 4 || parts[0] != djangoPBKDF2ID {
		return false, errors.New("invalid pbkdf2 hash format")
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return false, errors.New("invalid pbkdf2 iterations")
	}
	if parts[2] == "" {
		return false, errors.New("invalid pbkdf2 salt")
	}

	expected, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false, errors.New("invalid pbkdf2 digest")
	}

	computed := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
