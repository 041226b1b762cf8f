package collector

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skybright/solarcollect/pkg/battery"
	"github.com/skybright/solarcollect/pkg/metrics"
	"github.com/skybright/solarcollect/pkg/sensor"
)

type fakeSource struct {
	sample    metrics.Sample
	sampleErr error
	dayNight  sensor.DayNight
}

func (f *fakeSource) ReadSample(_ context.Context) (metrics.Sample, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	// Copy so the collector's enrichment does not leak between ticks.
	out := make(metrics.Sample, len(f.sample))
	for k, v := range f.sample {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSource) ReadDayNight(_ context.Context) (sensor.DayNight, error) {
	return f.dayNight, nil
}

type fakeEnqueuer struct {
	records []metrics.Aggregated
}

func (f *fakeEnqueuer) Enqueue(records ...metrics.Aggregated) {
	f.records = append(f.records, records...)
}

func daytimeReading() sensor.DayNight {
	day := true
	return sensor.DayNight{Indicator: &day}
}

func newTestCollector(t *testing.T, src sensor.Source, pipe Enqueuer) (*Collector, *battery.Estimator) {
	t.Helper()

	store := battery.NewFileStore(filepath.Join(t.TempDir(), "battery.state"))
	est, err := battery.NewEstimator(store, 100, 6)
	require.NoError(t, err)

	agg := metrics.NewAggregator(metrics.PolicyTable(
		[]string{metrics.MetricTimestamp, metrics.MetricBatteryCharge},
		[]string{metrics.MetricChargingMode},
	))

	c := New(Config{
		CollectionInterval:  5 * time.Second,
		DayUploadInterval:   time.Minute,
		NightUploadInterval: 10 * time.Minute,
	}, src, est, agg, pipe, nil)

	return c, est
}

func TestUntilNextBoundary(t *testing.T) {
	for _, tc := range []struct {
		now      time.Time
		interval time.Duration
	}{
		{time.Unix(1000, 0), 5 * time.Second},
		{time.Unix(1001, 300), 5 * time.Second},
		{time.Unix(1717243521, 987654321), time.Minute},
		{time.Unix(1717243521, 0), 10 * time.Minute},
	} {
		got := untilNextBoundary(tc.now, tc.interval)

		rem := time.Duration(tc.now.UnixNano()) % tc.interval
		assert.Equal(t, tc.interval-rem, got)
		assert.Greater(t, got, time.Duration(0))
		assert.LessOrEqual(t, got, tc.interval)

		// The boundary lands on a wall-clock multiple of the interval.
		boundary := tc.now.Add(got)
		assert.Zero(t, time.Duration(boundary.UnixNano())%tc.interval)
	}
}

func TestFirstBoundaryCrossingOnlyAnchors(t *testing.T) {
	src := &fakeSource{
		sample:   metrics.Sample{metrics.MetricBatteryVolts: 12.6, metrics.MetricBatteryAmps: 1.0},
		dayNight: daytimeReading(),
	}
	pipe := &fakeEnqueuer{}
	c, _ := newTestCollector(t, src, pipe)

	t0 := time.Unix(1717243521, 0) // not on an upload boundary
	c.tick(context.Background(), t0)

	// The first crossing never uploads; it only anchors the schedule.
	assert.Empty(t, pipe.records)
	assert.False(t, c.nextUpload.IsZero())
	assert.True(t, c.agg.Empty(), "aggregator must be cleared on the anchor crossing")

	expected := t0.Add(untilNextBoundary(t0, time.Minute))
	assert.Equal(t, expected, c.nextUpload)
}

func TestSubsequentBoundaryCrossingUploads(t *testing.T) {
	src := &fakeSource{
		sample:   metrics.Sample{metrics.MetricBatteryVolts: 12.6, metrics.MetricBatteryAmps: 1.0},
		dayNight: daytimeReading(),
	}
	pipe := &fakeEnqueuer{}
	c, _ := newTestCollector(t, src, pipe)

	t0 := time.Unix(1717243521, 0)
	c.tick(context.Background(), t0)
	require.Empty(t, pipe.records)

	// Ticks inside the cycle accumulate without uploading.
	c.tick(context.Background(), t0.Add(5*time.Second))
	require.Empty(t, pipe.records)

	// Crossing the anchored boundary uploads and clears.
	c.tick(context.Background(), c.nextUpload.Add(time.Second))
	require.Len(t, pipe.records, 1)
	assert.True(t, c.agg.Empty())

	record := pipe.records[0]
	assert.Contains(t, record, metrics.MetricBatteryVolts)
	assert.Contains(t, record, metrics.MetricBatteryCharge)
	assert.Contains(t, record, metrics.MetricTimestamp)

	// Timestamp is already wire formatted.
	_, err := time.Parse(metrics.TimestampLayout, record[metrics.MetricTimestamp].(string))
	assert.NoError(t, err)
}

func TestNightIntervalUsedAfterDark(t *testing.T) {
	night := false
	src := &fakeSource{
		sample:   metrics.Sample{metrics.MetricBatteryVolts: 12.6},
		dayNight: sensor.DayNight{Indicator: &night},
	}
	pipe := &fakeEnqueuer{}
	c, _ := newTestCollector(t, src, pipe)

	t0 := time.Unix(1717243521, 0)
	c.tick(context.Background(), t0)

	assert.False(t, c.Daytime())
	expected := t0.Add(untilNextBoundary(t0, 10*time.Minute))
	assert.Equal(t, expected, c.nextUpload)
}

func TestSensorFailureSkipsTick(t *testing.T) {
	src := &fakeSource{
		sampleErr: assert.AnError,
		dayNight:  daytimeReading(),
	}
	pipe := &fakeEnqueuer{}
	c, _ := newTestCollector(t, src, pipe)

	t0 := time.Unix(1717243521, 0)
	c.tick(context.Background(), t0)
	c.tick(context.Background(), c.nextUpload.Add(time.Second))

	// Nothing collected, so nothing is uploaded either.
	assert.True(t, c.agg.Empty())
	assert.Empty(t, pipe.records)
}

func TestFloatChargeResyncOverwritesCapacity(t *testing.T) {
	// Floating at nominal voltage with zero net current: the estimator
	// reports the pack full and the drifted coulomb count is corrected.
	src := &fakeSource{
		sample: metrics.Sample{
			metrics.MetricChargingMode: string(sensor.ChargeModeFloat),
			metrics.MetricBatteryVolts: 13.8,
			metrics.MetricBatteryAmps:  0.0,
			metrics.MetricBatteryTemp:  20.0,
		},
		dayNight: daytimeReading(),
	}
	c, est := newTestCollector(t, src, &fakeEnqueuer{})

	require.NoError(t, est.SetRemainingCapacity(10))
	c.tick(context.Background(), time.Unix(1717243521, 0))

	ah, err := est.RemainingCapacity()
	require.NoError(t, err)
	assert.InDelta(t, 100.0, ah, 1e-9)
}

func TestFloatChargeResyncIgnoresSentinel(t *testing.T) {
	// Floating but with a C-rate far outside the window: the estimator
	// returns the 0.0 sentinel, which must never be written back.
	src := &fakeSource{
		sample: metrics.Sample{
			metrics.MetricChargingMode: string(sensor.ChargeModeFloat),
			metrics.MetricBatteryVolts: 13.8,
			metrics.MetricBatteryAmps:  50.0,
			metrics.MetricBatteryTemp:  20.0,
		},
		dayNight: daytimeReading(),
	}
	c, est := newTestCollector(t, src, &fakeEnqueuer{})

	require.NoError(t, est.SetRemainingCapacity(10))
	c.tick(context.Background(), time.Unix(1717243521, 0))

	ah, err := est.RemainingCapacity()
	require.NoError(t, err)

	// Only the coulomb-counting step moved the value: 50 A for 5 s.
	expected := 10.0 + 50.0*(5.0/3600.0)
	assert.InDelta(t, expected, ah, 1e-9)
}

func TestResyncSkippedWhenNearlyFull(t *testing.T) {
	src := &fakeSource{
		sample: metrics.Sample{
			metrics.MetricChargingMode: string(sensor.ChargeModeFloat),
			metrics.MetricBatteryVolts: 13.8,
			metrics.MetricBatteryAmps:  0.0,
		},
		dayNight: daytimeReading(),
	}
	c, est := newTestCollector(t, src, &fakeEnqueuer{})

	require.NoError(t, est.SetRemainingCapacity(99))
	c.tick(context.Background(), time.Unix(1717243521, 0))

	ah, err := est.RemainingCapacity()
	require.NoError(t, err)
	assert.InDelta(t, 99.0, ah, 1e-9)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	src := &fakeSource{
		sample:   metrics.Sample{metrics.MetricBatteryVolts: 12.6},
		dayNight: daytimeReading(),
	}
	c, _ := newTestCollector(t, src, &fakeEnqueuer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("collector did not stop after context cancellation")
	}
}
