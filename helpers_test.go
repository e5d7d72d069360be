package goGrant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGrant/password"
	"github.com/MrEthical07/goGrant/token/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testDirectory struct {
	mu    sync.Mutex
	users map[string]User
	fail  error
	sets  int
}

func newTestDirectory() *testDirectory {
	return &testDirectory{users: make(map[string]User)}
}

func (d *testDirectory) put(u User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

func (d *testDirectory) get(id string) User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[id]
}

func (d *testDirectory) find(match func(User) bool) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return User{}, d.fail
	}
	for _, u := range d.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (d *testDirectory) FindByEmail(_ context.Context, email string) (User, error) {
	return d.find(func(u User) bool { return strings.EqualFold(u.Email, email) })
}

func (d *testDirectory) FindByUsername(_ context.Context, username string) (User, error) {
	return d.find(func(u User) bool { return u.Username == username })
}

func (d *testDirectory) FindByID(_ context.Context, id string) (User, error) {
	return d.find(func(u User) bool { return u.ID == id })
}

func (d *testDirectory) SetPasswordHash(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	d.users[id] = u
	d.sets++
	return nil
}

func (d *testDirectory) SwapPasswordHash(_ context.Context, id, current, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if u.PasswordHash != current {
		return ErrPasswordHashChanged
	}
	u.PasswordHash = hash
	d.users[id] = u
	d.sets++
	return nil
}

type sentMail struct {
	To, Subject, Body string
}

type testNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (n *testNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *testNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return n.sent[len(n.sent)-1]
}

type testGroups map[string][]Role

func (g testGroups) RolesFor(_ context.Context, userID string) ([]Role, error) {
	if userID == "broken" {
		return nil, errors.New("group backend down")
	}
	return g[userID], nil
}

type testEnv struct {
	engine    *Engine
	store     *memstore.Store
	directory *testDirectory
	notifier  *testNotifier
	clock     *testClock
	redis     *miniredis.Miniredis
}

type envOption func(*Builder, *testEnv)

func withRedisThrottle(t testing.TB) envOption {
	return func(b *Builder, env *testEnv) {
		mr, rdb := newTestRedis(t)
		env.redis = mr
		b.WithRedis(rdb)
	}
}

func withBuilder(fn func(*Builder)) envOption {
	return func(b *Builder, _ *testEnv) {
		fn(b)
	}
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func hashPassword(t testing.TB, cfg Config, plain string) string {
	t.Helper()

	h, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := h.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

// newTestEnv builds an engine over a memory store with one active user,
// alice (id u1), and one inactive user, bob (id u2).
func newTestEnv(t testing.TB, cfg Config, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memstore.New(),
		directory: newTestDirectory(),
		notifier:  &testNotifier{},
		clock:     newTestClock(),
	}

	hash := hashPassword(t, cfg, testPassword)
	env.directory.put(User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hash, Verified: true, Status: StatusActive})
	env.directory.put(User{ID: "u2", Username: "bob", Email: "bob@example.com", PasswordHash: hash, Status: StatusInactive})

	b := New().
		WithConfig(cfg).
		WithTokenStore(env.store).
		WithDirectory(env.directory).
		WithNotifier(env.notifier).
		WithGroupStore(testGroups{"u1": {{Name: "admin", Permissions: []string{"audit.read"}}}}).
		WithClock(env.clock.Now)
	for _, opt := range opts {
		opt(b, env)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	env.engine = engine
	t.Cleanup(engine.Close)
	return env
}

func (env *testEnv) login(t testing.TB) *LoginResult {
	t.Helper()

	res, err := env.engine.Login(context.Background(), "alice", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return res
}
