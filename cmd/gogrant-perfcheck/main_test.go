package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const benchOutput = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/goGrant
BenchmarkAuthorize-8              	 1000000	      1000 ns/op	     320 B/op	       6 allocs/op
BenchmarkAuthorize-8              	 1000000	      1200 ns/op	     320 B/op	       6 allocs/op
BenchmarkAuthorize-8              	 1000000	      1100 ns/op	     320 B/op	       6 allocs/op
BenchmarkAuthorizeParallel-8      	 4000000	       300 ns/op
BenchmarkRefresh-8                	  500000	      2000 ns/op	     900 B/op	      12 allocs/op
BenchmarkMetricsInc-8             	100000000	        10 ns/op	       0 B/op	       0 allocs/op
BenchmarkLogin-8                  	     100	  10000000 ns/op
PASS
`

func TestParseKeepsTrackedBenchmarks(t *testing.T) {
	got, err := parse(strings.NewReader(benchOutput))
	require.NoError(t, err)

	assert.Equal(t, []float64{1000, 1200, 1100}, got["BenchmarkAuthorize"]["ns/op"])
	assert.Equal(t, []float64{6, 6, 6}, got["BenchmarkAuthorize"]["allocs/op"])
	assert.Equal(t, []float64{300}, got["BenchmarkAuthorizeParallel"]["ns/op"])
	assert.NotContains(t, got, "BenchmarkLogin")
}

func TestTrimProcs(t *testing.T) {
	assert.Equal(t, "BenchmarkRefresh", trimProcs("BenchmarkRefresh-16"))
	assert.Equal(t, "BenchmarkRefresh", trimProcs("BenchmarkRefresh"))
	assert.Equal(t, "Benchmark-name", trimProcs("Benchmark-name"))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestCompare(t *testing.T) {
	baseline, err := parse(strings.NewReader(benchOutput))
	require.NoError(t, err)

	t.Run("identical runs pass", func(t *testing.T) {
		_, failures := compare(baseline, baseline, defaultThreshold)
		assert.Empty(t, failures)
	})

	t.Run("slower authorize fails", func(t *testing.T) {
		slower := strings.ReplaceAll(benchOutput, "      1100 ns/op", "      9000 ns/op")
		slower = strings.ReplaceAll(slower, "      1200 ns/op", "      9000 ns/op")
		candidate, err := parse(strings.NewReader(slower))
		require.NoError(t, err)

		_, failures := compare(baseline, candidate, defaultThreshold)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "BenchmarkAuthorize ns/op regressed")
	})

	t.Run("new allocations fail", func(t *testing.T) {
		allocating := strings.Replace(benchOutput, "0 B/op	       0 allocs/op", "16 B/op	       1 allocs/op", 1)
		candidate, err := parse(strings.NewReader(allocating))
		require.NoError(t, err)

		_, failures := compare(baseline, candidate, defaultThreshold)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "BenchmarkMetricsInc allocs/op went from 0 to 1")
	})

	t.Run("missing benchmark fails", func(t *testing.T) {
		candidate := samples{}
		_, failures := compare(baseline, candidate, defaultThreshold)
		assert.NotEmpty(t, failures)
	})
}
