package collector

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/battery"
	"github.com/skybright/solarcollect/pkg/metrics"
	"github.com/skybright/solarcollect/pkg/sensor"
)

// Only force the charge state from the voltage estimate if we have gotten
// significantly off track.
const resyncBelowPercent = 98.0

// Config carries the collection cadences. The upload interval is variable:
// short by day (there is more interesting data), long by night.
type Config struct {
	CollectionInterval  time.Duration
	DayUploadInterval   time.Duration
	NightUploadInterval time.Duration
}

// Enqueuer receives aggregated records for delivery.
type Enqueuer interface {
	Enqueue(records ...metrics.Aggregated)
}

// LivePublisher mirrors raw tick samples somewhere, e.g. an MQTT broker.
type LivePublisher interface {
	PublishSample(sample metrics.Sample)
}

// Collector drives the sampling cadence, rolls samples into the aggregator,
// and hands per-cycle aggregates to the upload pipeline. It owns the
// aggregator and the battery estimator; both are touched only from Run's
// goroutine.
type Collector struct {
	cfg  Config
	src  sensor.Source
	est  *battery.Estimator
	agg  *metrics.Aggregator
	pipe Enqueuer
	live LivePublisher // may be nil

	dayNight   dayNightTracker
	daytime    atomic.Bool // mirror for concurrent status reads
	nextUpload time.Time

	now func() time.Time
}

func New(cfg Config, src sensor.Source, est *battery.Estimator, agg *metrics.Aggregator, pipe Enqueuer, live LivePublisher) *Collector {
	return &Collector{
		cfg:  cfg,
		src:  src,
		est:  est,
		agg:  agg,
		pipe: pipe,
		live: live,
		now:  time.Now,
	}
}

// Daytime reports the current day/night state.
func (c *Collector) Daytime() bool {
	return c.daytime.Load()
}

// Run executes the collection loop until the context is cancelled. Each
// tick sleeps to the next wall-clock multiple of the collection interval,
// so drift from sampling duration does not accumulate.
func (c *Collector) Run(ctx context.Context) {
	logrus.Info("collection loop starting")

	for {
		tickStart := c.now()
		c.tick(ctx, tickStart)
		logrus.Debugf("finished collection tick in %s", c.now().Sub(tickStart))

		delay := untilNextBoundary(c.now(), c.cfg.CollectionInterval)
		logrus.Debugf("next collection scheduled in %s", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			logrus.Info("collection loop stopped")
			return
		}
	}
}

func (c *Collector) tick(ctx context.Context, now time.Time) {
	if r, err := c.src.ReadDayNight(ctx); err != nil {
		logrus.Errorf("day/night read failed, keeping previous state: %v", err)
	} else {
		c.daytime.Store(c.dayNight.Update(r))
	}

	uploadInterval := c.cfg.NightUploadInterval
	if c.dayNight.Daytime() {
		uploadInterval = c.cfg.DayUploadInterval
	}

	sample, err := c.src.ReadSample(ctx)
	if err != nil {
		// Skip the tick rather than feed a partial sample into the
		// rollups; the loop itself never aborts on sensor errors.
		logrus.Errorf("sensor read failed, skipping tick: %v", err)
	} else {
		c.enrich(sample, now)
		c.agg.Add(sample)
		if c.live != nil {
			c.live.PublishSample(sample)
		}
	}

	if now.After(c.nextUpload) {
		// Skip the initial upload: the first boundary crossing only
		// anchors subsequent boundaries to the wall clock.
		if !c.nextUpload.IsZero() && !c.agg.Empty() {
			logrus.Info("uploading aggregated metrics")
			c.pipe.Enqueue(c.agg.Aggregate())
		}
		c.agg.Clear()
		c.nextUpload = now.Add(untilNextBoundary(now, uploadInterval))
		logrus.Debugf("next upload scheduled at %s", c.nextUpload.Format(time.RFC3339))
	}
}

// enrich adds the battery-estimator-derived fields to the sample and runs
// the coulomb-counting integration step for this interval.
func (c *Collector) enrich(sample metrics.Sample, now time.Time) {
	volts := sample.Float(metrics.MetricBatteryVolts)
	amps := sample.Float(metrics.MetricBatteryAmps)
	temp := sample.Float(metrics.MetricBatteryTemp)

	if sample.String(metrics.MetricChargingMode) == string(sensor.ChargeModeFloat) {
		c.resyncFromFloat(volts, amps, temp)
	}

	ahThisInterval := amps * c.cfg.CollectionInterval.Hours()
	if err := c.est.Update(ahThisInterval); err != nil {
		logrus.Errorf("battery SoC update failed: %v", err)
	}

	pct, err := c.est.PercentCharged()
	if err != nil {
		logrus.Errorf("failed to read battery charge: %v", err)
	} else {
		sample[metrics.MetricBatteryCharge] = math.Round(pct*100) / 100
	}

	sample[metrics.MetricTimestamp] = now

	remaining, _ := c.est.RemainingCapacity()
	logrus.WithFields(logrus.Fields{
		"remainingAh":    remaining,
		"percentCharged": pct,
		"batteryVolts":   volts,
	}).Debug("estimated battery SoC")
}

// resyncFromFloat overwrites the persisted capacity from the float-voltage
// estimate when the coulomb count has drifted well below full. The
// estimator returns 0.0 when it has no improved estimate; that sentinel
// must never be written back.
func (c *Collector) resyncFromFloat(volts, amps, temp float64) {
	pct, err := c.est.PercentCharged()
	if err != nil || pct >= resyncBelowPercent {
		return
	}

	est := c.est.EstimateCapacityFromVoltage(volts, amps, true, temp)
	if est <= 0 {
		return
	}

	if err := c.est.SetRemainingCapacity(est); err != nil {
		logrus.Errorf("failed to resync battery capacity: %v", err)
	}
}

// untilNextBoundary returns the time remaining until the next wall-clock
// multiple of interval. The result is always in (0, interval].
func untilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	rem := time.Duration(now.UnixNano()) % interval
	return interval - rem
}
