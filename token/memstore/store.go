// Package memstore is an in-process token.Store for tests, examples and
// single-instance deployments that accept losing tokens on restart.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

// Store keeps clients and tokens in maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	clients  map[string]token.Client
	access   map[string]token.AccessToken
	refresh  map[string]token.RefreshToken
	pairedRT map[string]string
	byUser   map[string]map[string]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		clients:  make(map[string]token.Client),
		access:   make(map[string]token.AccessToken),
		refresh:  make(map[string]token.RefreshToken),
		pairedRT: make(map[string]string),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func clientKey(name string, grant token.GrantType) string {
	return string(grant) + "\x00" + name
}

func (s *Store) EnsureClient(_ context.Context, c token.Client) (token.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clientKey(c.Name, c.Grant)
	if existing, ok := s.clients[key]; ok {
		return existing, nil
	}
	s.clients[key] = c
	return c, nil
}

func (s *Store) SavePair(_ context.Context, p token.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putPair(p)
	return nil
}

func (s *Store) putPair(p token.Pair) {
	s.access[p.Access.Hash] = p.Access
	s.refresh[p.Refresh.Hash] = p.Refresh
	s.pairedRT[p.Access.Hash] = p.Refresh.Hash

	set, ok := s.byUser[p.Access.UserID]
	if !ok {
		set = make(map[string]struct{})
		s.byUser[p.Access.UserID] = set
	}
	set[p.Access.Hash] = struct{}{}
}

func (s *Store) Access(_ context.Context, hash string) (token.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.access[hash]
	if !ok {
		return token.AccessToken{}, token.ErrNotFound
	}
	return at, nil
}

func (s *Store) Rotate(_ context.Context, r token.Rotation) (token.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.refresh[r.RefreshHash]
	if !ok {
		return token.Pair{}, token.ErrNotFound
	}

	delete(s.refresh, r.RefreshHash)
	delete(s.pairedRT, old.AccessHash)

	at, ok := s.access[old.AccessHash]
	if !ok || at.Expired(r.Now) {
		return token.Pair{}, token.ErrExpired
	}
	if r.RevokeSuperseded {
		s.dropAccess(at)
	}

	next := token.Pair{
		Access: token.AccessToken{
			Hash:      r.NextAccessHash,
			UserID:    old.UserID,
			ClientID:  old.ClientID,
			Scope:     at.Scope,
			ExpiresAt: r.NextExpiresAt,
			CreatedAt: r.Now,
		},
		Refresh: token.RefreshToken{
			Hash:       r.NextRefreshHash,
			UserID:     old.UserID,
			ClientID:   old.ClientID,
			AccessHash: r.NextAccessHash,
			CreatedAt:  r.Now,
		},
	}
	s.putPair(next)
	return next, nil
}

func (s *Store) RevokeAccess(_ context.Context, accessHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.access[accessHash]; ok {
		s.dropAccess(at)
	}
	return nil
}

func (s *Store) RevokeUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for hash := range s.byUser[userID] {
		if at, ok := s.access[hash]; ok {
			s.dropAccess(at)
			n++
		}
	}
	delete(s.byUser, userID)
	return n, nil
}

func (s *Store) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, at := range s.access {
		if at.ExpiresAt.Before(cutoff) {
			s.dropAccess(at)
			n++
		}
	}
	return n, nil
}

// Len reports how many access and refresh tokens are stored.
func (s *Store) Len() (access, refresh int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.access), len(s.refresh)
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// dropAccess must be called with s.mu held.
func (s *Store) dropAccess(at token.AccessToken) {
	if rt, ok := s.pairedRT[at.Hash]; ok {
		delete(s.refresh, rt)
		delete(s.pairedRT, at.Hash)
	}
	delete(s.access, at.Hash)
	if set, ok := s.byUser[at.UserID]; ok {
		delete(set, at.Hash)
		if len(set) == 0 {
			delete(s.byUser, at.UserID)
		}
	}
}

var _ token.Store = (*Store)(nil)
