package goGrant

import (
	"context"
	"testing"
)

func BenchmarkAuthorize(b *testing.B) {
	env := newTestEnv(b, testConfig())
	access := env.login(b).Tokens.AccessToken
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Authorize(ctx, access, ""); err != nil {
			b.Fatalf("authorize failed: %v", err)
		}
	}
}

func BenchmarkAuthorizeParallel(b *testing.B) {
	env := newTestEnv(b, testConfig())
	access := env.login(b).Tokens.AccessToken

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := env.engine.Authorize(ctx, access, ""); err != nil {
				b.Errorf("authorize failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkRefresh(b *testing.B) {
	env := newTestEnv(b, testConfig())
	refresh := env.login(b).Tokens.RefreshToken
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pair, err := env.engine.Refresh(ctx, refresh)
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
		refresh = pair.RefreshToken
	}
}

func BenchmarkLogin(b *testing.B) {
	env := newTestEnv(b, testConfig())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := env.engine.Login(ctx, "alice", testPassword)
		if err != nil {
			b.Fatalf("login failed: %v", err)
		}
		_ = env.engine.Revoke(ctx, res.Tokens.AccessToken)
	}
}
