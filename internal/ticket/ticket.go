// Package ticket derives and checks stateless password-reset tickets.
//
// A ticket is bound to a user id, the user's current password hash and a
// coarse time window. Nothing is persisted: a ticket is re-derived at check
// time, so changing the password hash invalidates every ticket issued against
// the previous hash.
//
// Token format: base36(window) "-" hex(HMAC-SHA256(k, len|uid|len|hash|window)).
package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize    = 32
	hkdfInfo   = "gogrant password reset v1"
	minSecret  = 16
	macHexSize = sha256.Size * 2
)

var (
	ErrMalformed = errors.New("malformed reset ticket")
	ErrMismatch  = errors.New("reset ticket mismatch")
	ErrExpired   = errors.New("reset ticket expired")
	ErrClosed    = errors.New("reset signer closed")
)

// Signer holds the derived HMAC key. It is safe for concurrent use until
// Wipe is called.
type Signer struct {
	mu     sync.RWMutex
	key    []byte
	window time.Duration
	ttl    time.Duration
}

// NewSigner derives the ticket key from secret with HKDF-SHA256. window is
// the time-window granularity and ttl the maximum age of a window start.
func NewSigner(secret []byte, window, ttl time.Duration) (*Signer, error) {
	if len(secret) < minSecret {
		return nil, fmt.Errorf("reset secret must be at least %d bytes", minSecret)
	}
	if window < time.Second || ttl <= 0 {
		return nil, errors.New("reset window must be >= 1s and ttl > 0")
	}
	if window > ttl {
		return nil, errors.New("reset window must not exceed ttl")
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive reset key: %w", err)
	}

	return &Signer{key: key, window: window, ttl: ttl}, nil
}

func (s *Signer) windowAt(now time.Time) int64 {
	return now.Unix() / int64(s.window/time.Second)
}

func (s *Signer) windowStart(w int64) time.Time {
	return time.Unix(w*int64(s.window/time.Second), 0)
}

// Make returns the token for userID and passwordHash at now.
func (s *Signer) Make(userID, passwordHash string, now time.Time) (string, error) {
	w := s.windowAt(now)
	mac, err := s.mac(userID, passwordHash, w)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(w, 36) + "-" + hex.EncodeToString(mac), nil
}

// Check verifies token against the user's current password hash. The MAC is
// compared in constant time before the window is looked at.
func (s *Signer) Check(userID, passwordHash, token string, now time.Time) error {
	winPart, macPart, ok := strings.Cut(token, "-")
	if !ok || winPart == "" || len(macPart) != macHexSize {
		return ErrMalformed
	}
	w, err := strconv.ParseInt(winPart, 36, 64)
	if err != nil || w < 0 {
		return ErrMalformed
	}
	got, err := hex.DecodeString(macPart)
	if err != nil {
		return ErrMalformed
	}

	want, err := s.mac(userID, passwordHash, w)
	if err != nil {
		return err
	}
	if !hmac.Equal(got, want) {
		return ErrMismatch
	}

	if w > s.windowAt(now) {
		return ErrMismatch
	}
	if now.Sub(s.windowStart(w)) > s.ttl {
		return ErrExpired
	}
	return nil
}

func (s *Signer) mac(userID, passwordHash string, w int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrClosed
	}

	m := hmac.New(sha256.New, s.key)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(userID)))
	m.Write(buf[:])
	m.Write([]byte(userID))
	binary.BigEndian.PutUint64(buf[:], uint64(len(passwordHash)))
	m.Write(buf[:])
	m.Write([]byte(passwordHash))
	binary.BigEndian.PutUint64(buf[:], uint64(w))
	m.Write(buf[:])
	return m.Sum(nil), nil
}

// Wipe zeroes the key. Later Make and Check calls return ErrClosed.
func (s *Signer) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
}

// EncodeUID is the URL form of a user id.
func EncodeUID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// DecodeUID accepts padded and unpadded base64url.
func DecodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil || len(raw) == 0 {
		return "", ErrMalformed
	}
	return string(raw), nil
}
