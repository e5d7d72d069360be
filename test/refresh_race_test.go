package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/testkit"
)

func TestRefreshRaceSingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, k *testkit.Kit) {
		ctx := context.Background()
		pair := k.Login(t)

		const workers = 16
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(workers)

		type outcome struct {
			pair goGrant.TokenPair
			err  error
		}
		results := make(chan outcome, workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				<-start
				next, err := k.Engine.Refresh(ctx, pair.RefreshToken)
				results <- outcome{pair: next, err: err}
			}()
		}

		close(start)
		wg.Wait()
		close(results)

		var winner goGrant.TokenPair
		success := 0
		for r := range results {
			switch {
			case r.err == nil:
				success++
				winner = r.pair
			case errors.Is(r.err, goGrant.ErrInvalidRefreshToken):
			default:
				t.Fatalf("unexpected refresh error: %v", r.err)
			}
		}

		if success != 1 {
			t.Fatalf("expected exactly one winner, got %d", success)
		}
		if _, err := k.Engine.Authorize(ctx, winner.AccessToken, "read"); err != nil {
			t.Fatalf("winner access token rejected: %v", err)
		}
		if _, err := k.Engine.Refresh(ctx, winner.RefreshToken); err != nil {
			t.Fatalf("winner refresh token rejected: %v", err)
		}
	})
}

func TestRefreshReplayRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, k *testkit.Kit) {
		ctx := context.Background()
		pair := k.Login(t)

		if _, err := k.Engine.Refresh(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("first refresh: %v", err)
		}
		if _, err := k.Engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, goGrant.ErrInvalidRefreshToken) {
			t.Fatalf("expected ErrInvalidRefreshToken on replay, got %v", err)
		}
	})
}
