// Package storetest is the behavioural suite every token.Store implementation
// runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

// Features toggles checks for optional store behaviour.
type Features struct {
	// Purge is set when PurgeExpired deletes rows instead of relying on
	// backend expiry.
	Purge bool
}

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) token.Store

var clientDefault = token.Client{
	ID:    "client-1",
	Name:  "Default",
	Type:  token.ClientConfidential,
	Grant: token.GrantPassword,
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory, features Features) {
	t.Helper()

	t.Run("EnsureClientIsIdempotent", func(t *testing.T) { testEnsureClient(t, newStore(t)) })
	t.Run("SaveAndAccess", func(t *testing.T) { testSaveAndAccess(t, newStore(t)) })
	t.Run("RotateConsumesRefresh", func(t *testing.T) { testRotate(t, newStore(t)) })
	t.Run("RotateRevokesSuperseded", func(t *testing.T) { testRotateRevokeSuperseded(t, newStore(t)) })
	t.Run("RotateExpired", func(t *testing.T) { testRotateExpired(t, newStore(t)) })
	t.Run("RotateSingleWinner", func(t *testing.T) { testRotateConcurrent(t, newStore(t)) })
	t.Run("RevokeAccess", func(t *testing.T) { testRevokeAccess(t, newStore(t)) })
	t.Run("RevokeUser", func(t *testing.T) { testRevokeUser(t, newStore(t)) })
	if features.Purge {
		t.Run("PurgeExpired", func(t *testing.T) { testPurge(t, newStore(t)) })
	}
}

func baseTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func mustClient(t *testing.T, s token.Store) token.Client {
	t.Helper()
	c := clientDefault
	c.CreatedAt = baseTime()
	got, err := s.EnsureClient(context.Background(), c)
	if err != nil {
		t.Fatalf("EnsureClient: %v", err)
	}
	return got
}

func pair(userID, clientID, n string, now time.Time, ttl time.Duration) token.Pair {
	at := token.Hash("access-" + n)
	return token.Pair{
		Access: token.AccessToken{
			Hash:      at,
			UserID:    userID,
			ClientID:  clientID,
			Scope:     "read write",
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		},
		Refresh: token.RefreshToken{
			Hash:       token.Hash("refresh-" + n),
			UserID:     userID,
			ClientID:   clientID,
			AccessHash: at,
			CreatedAt:  now,
		},
	}
}

func mustSave(t *testing.T, s token.Store, p token.Pair) {
	t.Helper()
	if err := s.SavePair(context.Background(), p); err != nil {
		t.Fatalf("SavePair: %v", err)
	}
}

func testEnsureClient(t *testing.T, s token.Store) {
	first := mustClient(t, s)
	if first.ID != clientDefault.ID {
		t.Fatalf("expected client id %q, got %q", clientDefault.ID, first.ID)
	}

	other := clientDefault
	other.ID = "client-2"
	second, err := s.EnsureClient(context.Background(), other)
	if err != nil {
		t.Fatalf("EnsureClient: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing client %q, got %q", first.ID, second.ID)
	}
	if second.Type != token.ClientConfidential || second.Grant != token.GrantPassword {
		t.Fatalf("unexpected client classification: %+v", second)
	}
}

func testSaveAndAccess(t *testing.T, s token.Store) {
	c := mustClient(t, s)
	now := baseTime()
	p := pair("u1", c.ID, "a", now, time.Hour)
	mustSave(t, s, p)

	got, err := s.Access(context.Background(), p.Access.Hash)
	if err != nil {
		t.Fatalf("Access: %v", err)
	}
	if got.UserID != "u1" || got.ClientID != c.ID || got.Scope != "read write" {
		t.Fatalf("unexpected access token: %+v", got)
	}
	if !got.ExpiresAt.Equal(p.Access.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", p.Access.ExpiresAt, got.ExpiresAt)
	}

	if _, err := s.Access(context.Background(), token.Hash("missing")); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func testRotate(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	p := pair("u1", c.ID, "a", now, time.Hour)
	mustSave(t, s, p)

	later := now.Add(time.Minute)
	next, err := s.Rotate(ctx, token.Rotation{
		RefreshHash:     p.Refresh.Hash,
		NextAccessHash:  token.Hash("access-b"),
		NextRefreshHash: token.Hash("refresh-b"),
		NextExpiresAt:   later.Add(time.Hour),
		Now:             later,
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if next.Access.UserID != "u1" || next.Access.ClientID != c.ID || next.Access.Scope != "read write" {
		t.Fatalf("successor did not inherit owner and scope: %+v", next.Access)
	}
	if next.Refresh.AccessHash != next.Access.Hash {
		t.Fatalf("successor refresh not paired with successor access")
	}

	if _, err := s.Access(ctx, next.Access.Hash); err != nil {
		t.Fatalf("successor access token not stored: %v", err)
	}
	if _, err := s.Access(ctx, p.Access.Hash); err != nil {
		t.Fatalf("superseded access token should stay valid: %v", err)
	}

	_, err = s.Rotate(ctx, token.Rotation{
		RefreshHash:     p.Refresh.Hash,
		NextAccessHash:  token.Hash("access-c"),
		NextRefreshHash: token.Hash("refresh-c"),
		NextExpiresAt:   later.Add(time.Hour),
		Now:             later,
	})
	if !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected consumed refresh token to be rejected, got %v", err)
	}
}

func testRotateRevokeSuperseded(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	p := pair("u1", c.ID, "a", now, time.Hour)
	mustSave(t, s, p)

	_, err := s.Rotate(ctx, token.Rotation{
		RefreshHash:      p.Refresh.Hash,
		NextAccessHash:   token.Hash("access-b"),
		NextRefreshHash:  token.Hash("refresh-b"),
		NextExpiresAt:    now.Add(time.Hour),
		Now:              now,
		RevokeSuperseded: true,
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := s.Access(ctx, p.Access.Hash); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected superseded access token to be revoked, got %v", err)
	}
}

func testRotateExpired(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	p := pair("u1", c.ID, "a", now, time.Minute)
	mustSave(t, s, p)

	rot := token.Rotation{
		RefreshHash:     p.Refresh.Hash,
		NextAccessHash:  token.Hash("access-b"),
		NextRefreshHash: token.Hash("refresh-b"),
		NextExpiresAt:   now.Add(2 * time.Hour),
		Now:             now.Add(time.Minute),
	}
	if _, err := s.Rotate(ctx, rot); !errors.Is(err, token.ErrExpired) {
		t.Fatalf("expected ErrExpired at the expiry instant, got %v", err)
	}
	if _, err := s.Rotate(ctx, rot); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected expired refresh token to be deleted, got %v", err)
	}
	if _, err := s.Access(ctx, token.Hash("access-b")); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expired rotation must not mint tokens, got %v", err)
	}
}

func testRotateConcurrent(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	p := pair("u1", c.ID, "a", now, time.Hour)
	mustSave(t, s, p)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Rotate(ctx, token.Rotation{
				RefreshHash:     p.Refresh.Hash,
				NextAccessHash:  token.Hash(fmt.Sprintf("access-next-%d", i)),
				NextRefreshHash: token.Hash(fmt.Sprintf("refresh-next-%d", i)),
				NextExpiresAt:   now.Add(time.Hour),
				Now:             now,
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	success, notFound := 0, 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, token.ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}
	if success != 1 || notFound != n-1 {
		t.Fatalf("expected exactly one winner, got success=%d notFound=%d", success, notFound)
	}
}

func testRevokeAccess(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	p := pair("u1", c.ID, "a", now, time.Hour)
	mustSave(t, s, p)

	if err := s.RevokeAccess(ctx, p.Access.Hash); err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	if _, err := s.Access(ctx, p.Access.Hash); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected revoked access token to be gone, got %v", err)
	}
	_, err := s.Rotate(ctx, token.Rotation{
		RefreshHash:     p.Refresh.Hash,
		NextAccessHash:  token.Hash("access-b"),
		NextRefreshHash: token.Hash("refresh-b"),
		NextExpiresAt:   now.Add(time.Hour),
		Now:             now,
	})
	if !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected paired refresh token to be revoked, got %v", err)
	}
	if err := s.RevokeAccess(ctx, p.Access.Hash); err != nil {
		t.Fatalf("second RevokeAccess should be a no-op, got %v", err)
	}
}

func testRevokeUser(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	a := pair("u1", c.ID, "a", now, time.Hour)
	b := pair("u1", c.ID, "b", now, time.Hour)
	other := pair("u2", c.ID, "c", now, time.Hour)
	mustSave(t, s, a)
	mustSave(t, s, b)
	mustSave(t, s, other)

	n, err := s.RevokeUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RevokeUser: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked access tokens, got %d", n)
	}
	for _, p := range []token.Pair{a, b} {
		if _, err := s.Access(ctx, p.Access.Hash); !errors.Is(err, token.ErrNotFound) {
			t.Fatalf("expected access token of u1 to be revoked, got %v", err)
		}
	}
	if _, err := s.Access(ctx, other.Access.Hash); err != nil {
		t.Fatalf("tokens of other users must survive: %v", err)
	}
}

func testPurge(t *testing.T, s token.Store) {
	ctx := context.Background()
	c := mustClient(t, s)
	now := baseTime()
	short := pair("u1", c.ID, "a", now, time.Minute)
	long := pair("u1", c.ID, "b", now, time.Hour)
	mustSave(t, s, short)
	mustSave(t, s, long)

	n, err := s.PurgeExpired(ctx, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged token, got %d", n)
	}
	if _, err := s.Access(ctx, short.Access.Hash); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected expired token to be purged, got %v", err)
	}
	if _, err := s.Access(ctx, long.Access.Hash); err != nil {
		t.Fatalf("live token must survive purge: %v", err)
	}
}
