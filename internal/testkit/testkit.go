// Package testkit builds small, fast engines for the HTTP adapter and
// black-box tests.
package testkit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/directory"
	"github.com/MrEthical07/goGrant/password"
	"github.com/MrEthical07/goGrant/token/memstore"
)

// Password is the plaintext secret of every seeded user.
const Password = "correct-password-123"

// Mail is one message captured by Mailbox.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailbox is a Notifier that keeps every message.
type Mailbox struct {
	mu   sync.Mutex
	mail []Mail
}

func (m *Mailbox) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mail = append(m.mail, Mail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mail)
}

// ResetLink returns uid and token from the newest message's reset URL.
func (m *Mailbox) ResetLink(t testing.TB) (uid, tok string) {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mail) == 0 {
		t.Fatal("no mail sent")
	}
	body := m.mail[len(m.mail)-1].Body
	fields := strings.Fields(body)
	link, err := url.Parse(fields[len(fields)-1])
	if err != nil {
		t.Fatalf("bad reset link in %q: %v", body, err)
	}
	return link.Query().Get("uid"), link.Query().Get("token")
}

// Kit is a built engine with its collaborators.
type Kit struct {
	Engine    *goGrant.Engine
	Store     *memstore.Store
	Directory *directory.Memory
	Mailbox   *Mailbox
	Alice     goGrant.User
	Bob       goGrant.User
}

// Config is DefaultConfig with argon2 costs low enough for tests.
func Config() goGrant.Config {
	cfg := goGrant.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

// New builds an engine with alice (active, role "admin") and bob (inactive).
// Options run on the builder before Build.
func New(t testing.TB, cfg goGrant.Config, opts ...func(*goGrant.Builder)) *Kit {
	t.Helper()

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(Password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	k := &Kit{
		Store:     memstore.New(),
		Directory: directory.NewMemory(),
		Mailbox:   &Mailbox{},
	}
	k.Alice, err = k.Directory.Add(goGrant.User{Username: "alice", Email: "alice@example.com", PasswordHash: hash, Verified: true})
	if err != nil {
		t.Fatalf("add alice: %v", err)
	}
	k.Bob, err = k.Directory.Add(goGrant.User{Username: "bob", Email: "bob@example.com", PasswordHash: hash, Status: goGrant.StatusInactive})
	if err != nil {
		t.Fatalf("add bob: %v", err)
	}
	k.Directory.PutRole(goGrant.Role{Name: "admin", Permissions: []string{"audit.read"}})
	if err := k.Directory.AssignRole(k.Alice.ID, "admin"); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	b := goGrant.New().
		WithConfig(cfg).
		WithTokenStore(k.Store).
		WithDirectory(k.Directory).
		WithGroupStore(k.Directory).
		WithNotifier(k.Mailbox)
	for _, opt := range opts {
		opt(b)
	}

	k.Engine, err = b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(k.Engine.Close)
	return k
}

// Login signs alice in with scope "read write".
func (k *Kit) Login(t testing.TB) goGrant.TokenPair {
	t.Helper()

	res, err := k.Engine.LoginWithScope(context.Background(), "alice", Password, "read write")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res.Tokens
}
