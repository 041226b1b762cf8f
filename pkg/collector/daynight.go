package collector

import (
	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/sensor"
)

// dayNightTracker derives the day/night state from the controller's signal.
// When only threshold voltages are available, the gap between the night and
// day thresholds is a dead zone: inside it the previous state is retained,
// which keeps the upload cadence from flapping at dusk and dawn.
type dayNightTracker struct {
	daytime bool
}

func (t *dayNightTracker) Update(r sensor.DayNight) bool {
	if r.Indicator != nil {
		t.daytime = *r.Indicator
		return t.daytime
	}

	logrus.WithFields(logrus.Fields{
		"day":     r.DayThresholdVolts,
		"night":   r.NightThresholdVolts,
		"current": r.InputVolts,
	}).Trace("no direct day/night value, deriving from input voltage")

	if r.InputVolts <= r.NightThresholdVolts {
		t.daytime = false
	}
	if r.InputVolts >= r.DayThresholdVolts {
		t.daytime = true
	}
	return t.daytime
}

func (t *dayNightTracker) Daytime() bool {
	return t.daytime
}
