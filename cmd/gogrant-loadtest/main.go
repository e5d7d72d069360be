// Command gogrant-loadtest measures authorize, refresh and login latency
// against the Redis token store.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/directory"
	"github.com/MrEthical07/goGrant/password"
	"github.com/MrEthical07/goGrant/token/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password"

type userState struct {
	user    goGrant.User
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed with a token pair")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (authorize + refresh)")
		logins      = flag.Int("logins", 500, "password logins to run; argon2 makes these slow")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gglt", "token key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *logins < 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goGrant.DefaultConfig()
	cfg.Tokens.AccessTTL = 24 * time.Hour
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}

	dir := directory.NewMemory()
	engine, err := goGrant.New().
		WithConfig(cfg).
		WithTokenStore(redisstore.New(client, *prefix, cfg.Tokens.Retention)).
		WithDirectory(dir).
		WithNotifier(discardNotifier{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]userState, *users)
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	for i := 0; i < *users; i++ {
		u, err := dir.Add(goGrant.User{
			Username:     fmt.Sprintf("load-%d", i),
			Email:        fmt.Sprintf("load-%d@example.com", i),
			PasswordHash: hash,
			Verified:     true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "add user failed: %v\n", err)
			os.Exit(1)
		}
		pair, err := engine.IssueTokens(ctx, u, "read write")
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = userState{user: u, access: pair.AccessToken, refresh: pair.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runAuthorizePhase(ctx, engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)
	var loginStats phaseStats
	if *logins > 0 {
		loginStats = runLoginPhase(ctx, engine, states, *logins, *concurrency)
	}

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("refresh", refreshStats)
	if *logins > 0 {
		printStats("login", loginStats)
	}

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: authorize_success=%d refresh_success=%d login_success=%d\n",
		snap.Counters[goGrant.MetricAuthorizeSuccess],
		snap.Counters[goGrant.MetricRefreshSuccess],
		snap.Counters[goGrant.MetricLoginSuccess],
	)
}

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, string, string, string) error { return nil }

// runPhase spreads ops calls of op over concurrency workers and records the
// latency of each call.
func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runAuthorizePhase(ctx context.Context, engine *goGrant.Engine, states []userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		access := state.access
		state.mu.Unlock()

		_, err := engine.Authorize(ctx, access, "read")
		return err
	})
}

// runRefreshPhase holds the user's lock across the rotation so the pair it
// presents is always the latest one.
func runRefreshPhase(ctx context.Context, engine *goGrant.Engine, states []userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		pair, err := engine.Refresh(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.access = pair.AccessToken
		state.refresh = pair.RefreshToken
		return nil
	})
}

func runLoginPhase(ctx context.Context, engine *goGrant.Engine, states []userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 104729, func(_ *rand.Rand, i int) error {
		state := &states[i%len(states)]
		_, err := engine.Login(ctx, state.user.Email, loadPassword)
		return err
	})
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
