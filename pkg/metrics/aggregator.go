package metrics

import (
	"math"
	"time"
)

// Policy selects how a metric's per-cycle history is rolled up.
type Policy int

const (
	// PolicyMean averages the cycle's values, rounded to 2 decimal places.
	PolicyMean Policy = iota
	// PolicyLast takes the most recently added value.
	PolicyLast
	// PolicyMode takes the most frequent value, ties broken by first seen.
	PolicyMode
)

// Aggregated is one cycle's rolled-up record, ready for upload.
type Aggregated map[string]any

// PolicyTable builds a metric-to-policy table from the per-deployment
// most-recent and most-common metric lists. Everything else is averaged.
func PolicyTable(mostRecent, mostCommon []string) map[string]Policy {
	table := make(map[string]Policy, len(mostRecent)+len(mostCommon))
	for _, m := range mostRecent {
		table[m] = PolicyLast
	}
	for _, m := range mostCommon {
		table[m] = PolicyMode
	}
	return table
}

// Aggregator accumulates samples over one upload cycle. It is owned by a
// single goroutine and has no internal locking.
type Aggregator struct {
	policies map[string]Policy
	history  map[string][]any
}

func NewAggregator(policies map[string]Policy) *Aggregator {
	if policies == nil {
		policies = map[string]Policy{}
	}
	return &Aggregator{
		policies: policies,
		history:  make(map[string][]any),
	}
}

// Add appends each of the sample's values to its metric's ordered history.
func (a *Aggregator) Add(sample Sample) {
	for metric, val := range sample {
		a.history[metric] = append(a.history[metric], val)
	}
}

// Aggregate rolls up the collected histories per the policy table. It is a
// pure read; histories are untouched until Clear. Timestamp values are
// formatted for the wire.
func (a *Aggregator) Aggregate() Aggregated {
	out := make(Aggregated, len(a.history))
	for metric, vals := range a.history {
		if len(vals) == 0 {
			continue
		}

		var v any
		switch a.policies[metric] {
		case PolicyLast:
			v = vals[len(vals)-1]
		case PolicyMode:
			v = mostCommon(vals)
		default:
			v = roundedMean(vals)
		}

		if t, ok := v.(time.Time); ok {
			v = t.Format(TimestampLayout)
		}
		out[metric] = v
	}
	return out
}

// Clear discards all per-metric histories. Callers invoke it only after
// consuming the aggregate result.
func (a *Aggregator) Clear() {
	a.history = make(map[string][]any)
}

// Empty reports whether nothing has been collected this cycle.
func (a *Aggregator) Empty() bool {
	return len(a.history) == 0
}

func mostCommon(vals []any) any {
	counts := make(map[any]int, len(vals))
	var order []any // first-seen order, for tie breaking
	for _, v := range vals {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func roundedMean(vals []any) any {
	var sum float64
	n := 0
	for _, v := range vals {
		switch f := v.(type) {
		case float64:
			sum += f
			n++
		case int:
			sum += float64(f)
			n++
		}
	}
	if n == 0 {
		// Nothing numeric to average; fall back to the latest value.
		return vals[len(vals)-1]
	}
	return math.Round(sum/float64(n)*100) / 100
}
