package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// ErrMalformedHash is returned for an argon2id string that cannot be parsed
// or whose parameters fall below Floor.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig is the cost used for new hashes unless configured otherwise:
// 64 MiB, three passes, two lanes, a 16 byte salt and a 32 byte key.
func DefaultConfig() Config {
	return Config{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// Floor is the weakest cost NewArgon2 accepts and the weakest stored hash
// Verify will run.
var Floor = Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}

// Validate reports the first parameter below Floor.
func (c Config) Validate() error {
	switch {
	case c.Memory < Floor.Memory:
		return fmt.Errorf("password memory must be >= %d KB", Floor.Memory)
	case c.Time < Floor.Time:
		return fmt.Errorf("password time must be >= %d", Floor.Time)
	case c.Parallelism < Floor.Parallelism:
		return fmt.Errorf("password parallelism must be >= %d", Floor.Parallelism)
	case c.SaltLength < Floor.SaltLength:
		return fmt.Errorf("password salt length must be >= %d", Floor.SaltLength)
	case c.KeyLength < Floor.KeyLength:
		return fmt.Errorf("password key length must be >= %d", Floor.KeyLength)
	}
	return nil
}

// Argon2 hashes and verifies argon2id PHC strings.
type Argon2 struct {
	config Config
}

// NewArgon2 rejects costs below Floor.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) params() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.parallelism)
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$%s$%s$%s",
		algorithmID, argon2.Version, p.params(),
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// Hash returns a PHC encoded argon2id hash with a fresh random salt. The
// password bytes are used as given, without Unicode normalization. Length
// policy is the caller's concern.
func (a *Argon2) Hash(password string) (string, error) {
	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", err
	}
	p.key = argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, a.config.KeyLength)
	return p.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time. A malformed hash is an error; a wrong password
// is (false, nil).
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(p.derive(password), p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash is cheaper than the configured
// cost or has a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength, nil
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return phc{}, fmt.Errorf("%w: not a PHC argon2id string", ErrMalformedHash)
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return phc{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[2])
	}

	var p phc
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil ||
		p.params() != fields[3] {
		return phc{}, fmt.Errorf("%w: bad parameters %q", ErrMalformedHash, fields[3])
	}
	if p.memory < Floor.Memory || p.time < Floor.Time || p.parallelism < Floor.Parallelism {
		return phc{}, fmt.Errorf("%w: parameters below floor", ErrMalformedHash)
	}

	var err error
	if p.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || uint32(len(p.salt)) < Floor.SaltLength {
		return phc{}, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if p.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(p.key) == 0 {
		return phc{}, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return p, nil
}
