package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/google/uuid"
)

// ErrDuplicateUser reports a username or email that is already taken.
var ErrDuplicateUser = errors.New("directory: username or email already exists")

// ErrUnknownRole reports an assignment of a role that was never defined.
var ErrUnknownRole = errors.New("directory: unknown role")

// Memory is an in-process directory guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]goGrant.User
	byName  map[string]string
	byEmail map[string]string
	roles   map[string]goGrant.Role
	members map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]goGrant.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
		roles:   make(map[string]goGrant.Role),
		members: make(map[string][]string),
	}
}

// Add stores u and returns it with its ID. An empty ID gets a fresh UUID and
// an empty status becomes StatusActive.
func (m *Memory) Add(u goGrant.User) (goGrant.User, error) {
	if u.Username == "" || u.Email == "" {
		return goGrant.User{}, errors.New("directory: username and email are required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = goGrant.StatusActive
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalizeEmail(u.Email)
	if _, ok := m.users[u.ID]; ok {
		return goGrant.User{}, ErrDuplicateUser
	}
	if _, ok := m.byName[u.Username]; ok {
		return goGrant.User{}, ErrDuplicateUser
	}
	if _, ok := m.byEmail[email]; ok {
		return goGrant.User{}, ErrDuplicateUser
	}

	m.users[u.ID] = u
	m.byName[u.Username] = u.ID
	m.byEmail[email] = u.ID
	return u, nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (goGrant.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return goGrant.User{}, notFound("email")
	}
	return m.users[id], nil
}

func (m *Memory) FindByUsername(_ context.Context, username string) (goGrant.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[username]
	if !ok {
		return goGrant.User{}, notFound("username")
	}
	return m.users[id], nil
}

func (m *Memory) FindByID(_ context.Context, id string) (goGrant.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return goGrant.User{}, notFound("id")
	}
	return u, nil
}

func (m *Memory) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return notFound("id")
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

// SwapPasswordHash replaces the hash only while it still equals current.
func (m *Memory) SwapPasswordHash(_ context.Context, id, current, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return notFound("id")
	}
	if u.PasswordHash != current {
		return goGrant.ErrPasswordHashChanged
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

// SetStatus activates or deactivates an account.
func (m *Memory) SetStatus(id string, status goGrant.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return notFound("id")
	}
	u.Status = status
	m.users[id] = u
	return nil
}

// PutRole defines or replaces a role.
func (m *Memory) PutRole(role goGrant.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()

	role.Permissions = append([]string(nil), role.Permissions...)
	m.roles[role.Name] = role
}

// AssignRole attaches a defined role to a user. Assigning twice is a no-op.
func (m *Memory) AssignRole(userID, roleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return notFound("id")
	}
	if _, ok := m.roles[roleName]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
	}
	for _, name := range m.members[userID] {
		if name == roleName {
			return nil
		}
	}
	m.members[userID] = append(m.members[userID], roleName)
	return nil
}

// RolesFor returns the user's roles in assignment order. Unknown users have
// no roles.
func (m *Memory) RolesFor(_ context.Context, userID string) ([]goGrant.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := m.members[userID]
	out := make([]goGrant.Role, 0, len(names))
	for _, name := range names {
		r := m.roles[name]
		r.Permissions = append([]string(nil), r.Permissions...)
		out = append(out, r)
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(by string) error {
	return fmt.Errorf("%w: no match by %s", goGrant.ErrUserNotFound, by)
}

var (
	_ goGrant.UserDirectory       = (*Memory)(nil)
	_ goGrant.PasswordHashSwapper = (*Memory)(nil)
	_ goGrant.GroupStore          = (*Memory)(nil)
)
