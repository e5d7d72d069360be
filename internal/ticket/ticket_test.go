package ticket

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testSecret, 5*time.Minute, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return s
}

func TestMakeCheckRoundTrip(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)

	tok, err := s.Make("user-1", "hash-a", now)
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	if err := s.Check("user-1", "hash-a", tok, now.Add(time.Minute)); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestCheckRejectsChangedPasswordHash(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)

	tok, _ := s.Make("user-1", "hash-a", now)
	if err := s.Check("user-1", "hash-b", tok, now); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := s.Check("user-2", "hash-a", tok, now); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for other user, got %v", err)
	}
}

func TestCheckFieldBoundaries(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)

	tok, _ := s.Make("ab", "c", now)
	if err := s.Check("a", "bc", tok, now); !errors.Is(err, ErrMismatch) {
		t.Fatalf("length prefixes must separate fields, got %v", err)
	}
}

func TestCheckExpiry(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_100, 0)

	tok, _ := s.Make("user-1", "hash-a", now)
	start := s.windowStart(s.windowAt(now))

	if err := s.Check("user-1", "hash-a", tok, start.Add(15*time.Minute)); err != nil {
		t.Fatalf("ticket at ttl boundary should pass: %v", err)
	}
	if err := s.Check("user-1", "hash-a", tok, start.Add(15*time.Minute+time.Second)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestCheckRejectsFutureWindow(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)

	tok, _ := s.Make("user-1", "hash-a", now.Add(time.Hour))
	if err := s.Check("user-1", "hash-a", tok, now); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for future window, got %v", err)
	}
}

func TestCheckMalformed(t *testing.T) {
	s := newTestSigner(t)
	now := time.Now()

	for _, tok := range []string{
		"",
		"nodash",
		"-" + strings.Repeat("0", macHexSize),
		"zz-short",
		"!!-" + strings.Repeat("0", macHexSize),
		"1-" + strings.Repeat("x", macHexSize),
	} {
		if err := s.Check("u", "h", tok, now); !errors.Is(err, ErrMalformed) {
			t.Fatalf("token %q: expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestDifferentSecretsDisagree(t *testing.T) {
	a := newTestSigner(t)
	b, err := NewSigner([]byte("another-secret-of-enough-length"), 5*time.Minute, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	now := time.Now()

	tok, _ := a.Make("u", "h", now)
	if err := b.Check("u", "h", tok, now); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch across secrets, got %v", err)
	}
}

func TestWipe(t *testing.T) {
	s := newTestSigner(t)
	s.Wipe()

	if _, err := s.Make("u", "h", time.Now()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Wipe, got %v", err)
	}
}

func TestNewSignerValidation(t *testing.T) {
	if _, err := NewSigner([]byte("short"), time.Minute, time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
	if _, err := NewSigner(testSecret, 0, time.Hour); err == nil {
		t.Fatal("expected error for zero window")
	}
	if _, err := NewSigner(testSecret, 2*time.Hour, time.Hour); err == nil {
		t.Fatal("expected error for window > ttl")
	}
}

func TestUIDRoundTrip(t *testing.T) {
	uid := EncodeUID("42")
	if strings.Contains(uid, "=") {
		t.Fatalf("uid must be unpadded, got %q", uid)
	}
	got, err := DecodeUID(uid)
	if err != nil || got != "42" {
		t.Fatalf("DecodeUID = %q, %v", got, err)
	}
	if got, err := DecodeUID("NDI="); err != nil || got != "42" {
		t.Fatalf("padded uid: %q, %v", got, err)
	}
	if _, err := DecodeUID("***"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func FuzzCheck(f *testing.F) {
	s, err := NewSigner(testSecret, 5*time.Minute, 15*time.Minute)
	if err != nil {
		f.Fatal(err)
	}
	now := time.Unix(1_700_000_000, 0)
	if tok, err := s.Make("u", "h", now); err == nil {
		f.Add(tok)
	}
	f.Add("")
	f.Add("1-")
	f.Add("zzzzzzzzzzzzzzzzzzzz-00")

	f.Fuzz(func(t *testing.T, tok string) {
		_ = s.Check("u", "h", tok, now)
	})
}
