package test

import (
	"context"
	"os"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/sqldb"
	"github.com/MrEthical07/goGrant/internal/testkit"
	"github.com/MrEthical07/goGrant/token"
	"github.com/MrEthical07/goGrant/token/memstore"
	"github.com/MrEthical07/goGrant/token/redisstore"
	"github.com/MrEthical07/goGrant/token/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// backend names one token store the black-box suite runs against.
type backend struct {
	name  string
	setup func(t *testing.T) token.Store
}

// backends returns the stores to test. miniredis and in-memory SQLite are
// always available; a real Redis is added when REDIS_ADDR is set.
func backends(t *testing.T) []backend {
	t.Helper()

	list := []backend{
		{name: "memory", setup: func(*testing.T) token.Store { return memstore.New() }},
		{name: "miniredis", setup: func(t *testing.T) token.Store {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis run failed: %v", err)
			}
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				_ = rdb.Close()
				mr.Close()
			})
			return redisstore.New(rdb, "", 0)
		}},
		{name: "sqlite", setup: func(t *testing.T) token.Store {
			db, err := sqldb.OpenAndMigrate(context.Background(), sqldb.DriverSQLite, ":memory:")
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			return sqlstore.New(db)
		}},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		list = append(list, backend{name: "redis", setup: func(t *testing.T) token.Store {
			rdb := redis.NewClient(&redis.Options{Addr: addr})
			if err := rdb.Ping(context.Background()).Err(); err != nil {
				t.Skipf("redis at %s unavailable: %v", addr, err)
			}
			prefix := "ggtest-" + t.Name()
			t.Cleanup(func() { _ = rdb.Close() })
			return redisstore.New(rdb, prefix, 0)
		}})
	}
	return list
}

// forEachBackend runs fn once per backend with a kit whose engine uses that
// backend's store.
func forEachBackend(t *testing.T, fn func(t *testing.T, k *testkit.Kit)) {
	t.Helper()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			store := b.setup(t)
			k := testkit.New(t, testkit.Config(), func(builder *goGrant.Builder) {
				builder.WithTokenStore(store)
			})
			fn(t, k)
		})
	}
}
