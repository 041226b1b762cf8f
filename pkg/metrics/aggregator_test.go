package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleAccessors(t *testing.T) {
	s := Sample{"f": 1.5, "s": "Float", "i": 3}

	assert.Equal(t, 1.5, s.Float("f"))
	assert.Equal(t, 3.0, s.Float("i"))
	assert.Equal(t, 0.0, s.Float("missing"))
	assert.Equal(t, 0.0, s.Float("s"))
	assert.Equal(t, "Float", s.String("s"))
	assert.Equal(t, "", s.String("f"))
}

func TestAggregateMean(t *testing.T) {
	a := NewAggregator(nil)
	a.Add(Sample{"a": 1.0})
	a.Add(Sample{"a": 3.0})
	a.Add(Sample{"a": 2.0})

	got := a.Aggregate()
	assert.Equal(t, 2.0, got["a"])
}

func TestAggregateMeanRoundsToTwoPlaces(t *testing.T) {
	a := NewAggregator(nil)
	a.Add(Sample{"a": 1.0})
	a.Add(Sample{"a": 2.0})
	a.Add(Sample{"a": 2.0})

	got := a.Aggregate()
	assert.Equal(t, 1.67, got["a"])
}

func TestAggregateLast(t *testing.T) {
	a := NewAggregator(map[string]Policy{"a": PolicyLast})
	a.Add(Sample{"a": 1.0})
	a.Add(Sample{"a": 3.0})
	a.Add(Sample{"a": 2.0})

	got := a.Aggregate()
	assert.Equal(t, 2.0, got["a"])
}

func TestAggregateMode(t *testing.T) {
	a := NewAggregator(map[string]Policy{"mode": PolicyMode})
	a.Add(Sample{"mode": "x"})
	a.Add(Sample{"mode": "y"})
	a.Add(Sample{"mode": "x"})

	got := a.Aggregate()
	assert.Equal(t, "x", got["mode"])
}

func TestAggregateModeTieBreaksFirstSeen(t *testing.T) {
	a := NewAggregator(map[string]Policy{"mode": PolicyMode})
	a.Add(Sample{"mode": "b"})
	a.Add(Sample{"mode": "a"})
	a.Add(Sample{"mode": "a"})
	a.Add(Sample{"mode": "b"})

	got := a.Aggregate()
	assert.Equal(t, "b", got["mode"])
}

func TestAggregateFormatsTimestamps(t *testing.T) {
	a := NewAggregator(map[string]Policy{MetricTimestamp: PolicyLast})
	ts := time.Date(2024, 6, 1, 13, 45, 9, 0, time.UTC)
	a.Add(Sample{MetricTimestamp: ts.Add(-5 * time.Second)})
	a.Add(Sample{MetricTimestamp: ts})

	got := a.Aggregate()
	assert.Equal(t, "2024-06-01 13:45:09", got[MetricTimestamp])
}

func TestAggregateIsPureRead(t *testing.T) {
	a := NewAggregator(nil)
	a.Add(Sample{"a": 1.0})
	a.Add(Sample{"a": 2.0})

	first := a.Aggregate()
	second := a.Aggregate()
	assert.Equal(t, first, second)
}

func TestClearDropsHistories(t *testing.T) {
	a := NewAggregator(nil)
	a.Add(Sample{"a": 1.0})
	assert.False(t, a.Empty())

	a.Clear()
	assert.True(t, a.Empty())
	assert.Empty(t, a.Aggregate())
}

func TestPolicyTable(t *testing.T) {
	table := PolicyTable([]string{"timestamp", "kwh_today"}, []string{"pv_charging_mode"})

	assert.Equal(t, PolicyLast, table["timestamp"])
	assert.Equal(t, PolicyLast, table["kwh_today"])
	assert.Equal(t, PolicyMode, table["pv_charging_mode"])
	assert.Equal(t, PolicyMean, table["anything_else"])
}
