package internaldefs

import (
	"strconv"
	"strings"

	goGrant "github.com/MrEthical07/goGrant"
)

// Namespace prefixes every exported metric name.
const Namespace = "gogrant"

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goGrant.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goGrant.MetricID
	Name string
	Help string
}

var help = map[goGrant.MetricID]string{
	goGrant.MetricLoginSuccess:                "Successful logins.",
	goGrant.MetricLoginFailure:                "Failed logins.",
	goGrant.MetricLoginRateLimited:            "Logins rejected by the failed-login throttle.",
	goGrant.MetricTokenIssued:                 "Token pairs issued.",
	goGrant.MetricRefreshSuccess:              "Successful refresh token rotations.",
	goGrant.MetricRefreshFailure:              "Refresh attempts with an unknown or consumed token.",
	goGrant.MetricRefreshExpired:              "Refresh attempts whose paired access token had expired.",
	goGrant.MetricAuthorizeSuccess:            "Bearer tokens accepted.",
	goGrant.MetricAuthorizeFailure:            "Bearer tokens rejected.",
	goGrant.MetricInsufficientScope:           "Bearer tokens rejected for a missing scope.",
	goGrant.MetricPermissionDenied:            "Role checks that denied access.",
	goGrant.MetricLogout:                      "Single token revocations.",
	goGrant.MetricLogoutAll:                   "Revocations of every token of a user.",
	goGrant.MetricPasswordResetRequest:        "Password reset mails sent.",
	goGrant.MetricPasswordResetConfirmSuccess: "Successful password reset confirmations.",
	goGrant.MetricPasswordResetConfirmFailure: "Rejected password reset confirmations.",
	goGrant.MetricPasswordHashUpgraded:        "Password hashes rewritten with current parameters.",
	goGrant.MetricTokensPurged:                "Expired access tokens purged.",
	goGrant.MetricRateLimitHit:                "Throttle checks that denied a request.",
}

// CounterDefs lists every engine counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists the engine histograms.
var HistogramDefs = []HistogramDef{
	{
		ID:   goGrant.MetricAuthorizeLatency,
		Name: Namespace + "_authorize_latency_seconds",
		Help: "Authorize latency.",
	},
}

// HistogramBounds are the bucket upper bounds in seconds; the last is +Inf.
var HistogramBounds = buildBounds()

// HistogramBoundLabels are the bounds rendered for labels and metric names.
var HistogramBoundLabels = buildBoundLabels()

const bucketCount = len(goGrant.LatencyBucketBounds) + 1

func buildCounterDefs() []CounterDef {
	var defs []CounterDef
	for _, id := range goGrant.MetricIDs() {
		if id == goGrant.MetricAuthorizeLatency {
			continue
		}
		defs = append(defs, CounterDef{
			ID:   id,
			Name: Namespace + "_" + id.String() + "_total",
			Help: help[id],
		})
	}
	return defs
}

func buildBounds() []float64 {
	out := make([]float64, 0, len(goGrant.LatencyBucketBounds))
	for _, d := range goGrant.LatencyBucketBounds {
		out = append(out, d.Seconds())
	}
	return out
}

func buildBoundLabels() []string {
	out := make([]string, 0, bucketCount)
	for _, b := range buildBounds() {
		out = append(out, strconv.FormatFloat(b, 'f', -1, 64))
	}
	return append(out, "+Inf")
}

// BoundSuffix turns a bound label into a metric name fragment: "0.005"
// becomes "0_005" and "+Inf" becomes "inf".
func BoundSuffix(label string) string {
	if label == "+Inf" {
		return "inf"
	}
	return strings.ReplaceAll(label, ".", "_")
}

// CumulativeBuckets converts per-bucket counts into cumulative counts. raw
// may be shorter than the bucket count; missing buckets are zero.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, bucketCount)
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
