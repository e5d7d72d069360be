package internaldefs

import (
	"strings"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	if got, want := len(CounterDefs), len(goGrant.MetricIDs())-1; got != want {
		t.Fatalf("expected %d counters, got %d", want, got)
	}

	seen := map[string]bool{}
	for _, def := range CounterDefs {
		if def.Help == "" {
			t.Errorf("%s has no help text", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gogrant_") || !strings.HasSuffix(def.Name, "_total") {
			t.Errorf("unexpected counter name %q", def.Name)
		}
		if seen[def.Name] {
			t.Errorf("duplicate counter name %q", def.Name)
		}
		seen[def.Name] = true
	}
}

func TestBounds(t *testing.T) {
	if len(HistogramBoundLabels) != 8 || HistogramBoundLabels[0] != "0.005" || HistogramBoundLabels[7] != "+Inf" {
		t.Fatalf("unexpected labels %v", HistogramBoundLabels)
	}
	if BoundSuffix("0.025") != "0_025" || BoundSuffix("+Inf") != "inf" {
		t.Fatal("unexpected bound suffix")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets([]uint64{1, 2, 0, 3})
	want := []uint64{1, 3, 3, 6, 6, 6, 6, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: got %d want %d", i, got[i], want[i])
		}
	}
}
