package password

import (
	"errors"
	"sync"
)

// ErrUnsupportedHash is returned for hashes of an unknown scheme.
var ErrUnsupportedHash = errors.New("unsupported password hash")

// Hasher writes argon2id hashes and verifies argon2id, bcrypt and Django
// PBKDF2 hashes, so users imported from older systems can still log in and
// be upgraded on their next successful login.
type Hasher struct {
	argon *Argon2

	dummyOnce sync.Once
	dummy     string
}

// New builds a Hasher with cfg as the argon2id cost for new hashes.
func New(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a}, nil
}

// Hash returns an argon2id PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

// Verify checks password against an encoded hash of any supported scheme.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	switch Detect(encodedHash) {
	case SchemeArgon2id:
		return h.argon.Verify(password, encodedHash)
	case SchemeBcrypt:
		return verifyBcrypt(password, encodedHash)
	case SchemeDjangoPBKDF2:
		return verifyDjangoPBKDF2(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade is true for every non-argon2id hash and for argon2id hashes
// with weaker costs than configured.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	switch Detect(encodedHash) {
	case SchemeArgon2id:
		return h.argon.NeedsUpgrade(encodedHash)
	case SchemeBcrypt, SchemeDjangoPBKDF2:
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}

// Burn runs one argon2id verification against a throwaway hash. Callers use
// it when no user matched so the response time does not reveal that.
func (h *Hasher) Burn(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.argon.Hash("dummy-password-for-timing")
	})
	if h.dummy == "" {
		return
	}
	_, _ = h.argon.Verify(password, h.dummy)
}
