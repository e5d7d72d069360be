package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(fastConfig())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return h
}

func TestDetect(t *testing.T) {
	tests := []struct {
		hash string
		want Scheme
	}{
		{"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA", SchemeArgon2id},
		{"$2a$10$abcdefghijklmnopqrstuu", SchemeBcrypt},
		{"$2b$10$abcdefghijklmnopqrstuu", SchemeBcrypt},
		{"pbkdf2_sha256$1000$salt$digest", SchemeDjangoPBKDF2},
		{"md5$salt$digest", SchemeUnknown},
		{"", SchemeUnknown},
	}
	for _, tt := range tests {
		if got := Detect(tt.hash); got != tt.want {
			t.Fatalf("Detect(%q) = %v, want %v", tt.hash, got, tt.want)
		}
	}
}

func TestHasherVerifiesBcrypt(t *testing.T) {
	h := newTestHasher(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("n3w-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	ok, err := h.Verify("n3w-pass", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt hash to verify: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch to be (false, nil): ok=%v err=%v", ok, err)
	}

	upgrade, err := h.NeedsUpgrade(string(legacy))
	if err != nil || !upgrade {
		t.Fatalf("expected bcrypt hash to need upgrade: upgrade=%v err=%v", upgrade, err)
	}
}

func TestHasherVerifiesDjangoPBKDF2(t *testing.T) {
	h := newTestHasher(t)
	const stored = "pbkdf2_sha256$1000$seasalt$e0/LekfmWwE6wA1PlWde0pPSn5PvBfOD2pVC85gYTwE="

	ok, err := h.Verify("n3w-pass", stored)
	if err != nil || !ok {
		t.Fatalf("expected django hash to verify: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("n3w-pasS", stored)
	if err != nil || ok {
		t.Fatalf("expected django mismatch to be (false, nil): ok=%v err=%v", ok, err)
	}

	if _, err := h.Verify("n3w-pass", "pbkdf2_sha256$zero$seasalt$AAAA"); err == nil {
		t.Fatal("expected malformed iteration count to fail")
	}
}

func TestHasherRejectsUnknownScheme(t *testing.T) {
	h := newTestHasher(t)

	if _, err := h.Verify("x", "md5$salt$digest"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
	if _, err := h.NeedsUpgrade("md5$salt$digest"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestHasherRoundTripDoesNotNeedUpgrade(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("n3w-pass")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if Detect(hash) != SchemeArgon2id {
		t.Fatalf("new hashes must be argon2id, got %q", hash)
	}
	upgrade, err := h.NeedsUpgrade(hash)
	if err != nil || upgrade {
		t.Fatalf("fresh hash should not need upgrade: upgrade=%v err=%v", upgrade, err)
	}

	h.Burn("anything")
}
