// Command gogrant-perfcheck compares two `go test -bench` outputs and fails
// when a tracked benchmark got slower than the allowed ratio.
//
//	go test -run '^$' -bench . -count 5 . > new.txt
//	gogrant-perfcheck -baseline old.txt -candidate new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// tracked lists the hot-path benchmarks and the units compared for each.
var tracked = map[string][]string{
	"BenchmarkAuthorize":         {"ns/op", "allocs/op"},
	"BenchmarkAuthorizeParallel": {"ns/op"},
	"BenchmarkRefresh":           {"ns/op", "allocs/op"},
	"BenchmarkMetricsInc":        {"ns/op", "allocs/op"},
}

// samples maps benchmark name to unit to every value seen for it.
type samples map[string]map[string][]float64

type result struct {
	benchmark string
	unit      string
	baseline  float64
	candidate float64
	delta     float64
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseFile(baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	results, failures := compare(baseline, candidate, threshold)

	fmt.Println("benchmark unit baseline candidate delta")
	for _, r := range results {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.benchmark, r.unit, r.baseline, r.candidate, r.delta*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
		os.Exit(1)
	}
}

// compare checks every tracked benchmark and unit. Results are sorted by
// benchmark then unit so the report is stable.
func compare(baseline, candidate samples, threshold float64) ([]result, []string) {
	var (
		results  []result
		failures []string
	)

	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, unit := range tracked[name] {
			if len(baseline[name][unit]) == 0 || len(candidate[name][unit]) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			base := median(baseline[name][unit])
			cand := median(candidate[name][unit])
			if base <= 0 {
				// Zero-alloc baselines only regress when allocations appear.
				if cand > 0 {
					failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.0f", name, unit, cand))
				}
				results = append(results, result{benchmark: name, unit: unit, baseline: base, candidate: cand})
				continue
			}

			delta := (cand - base) / base
			results = append(results, result{benchmark: name, unit: unit, baseline: base, candidate: cand, delta: delta})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, delta*100, threshold*100))
			}
		}
	}
	return results, failures
}

func parseFile(path string) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

// parse reads benchmark lines of the form
//
//	BenchmarkName-8   1000   1234 ns/op   56 B/op   2 allocs/op
//
// and ignores everything else.
func parse(r io.Reader) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}

		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if out[name] == nil {
			out[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// trimProcs drops the -GOMAXPROCS suffix go test appends to names.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
