package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skybright/solarcollect/pkg/sensor"
)

func TestDayNightDirectIndicator(t *testing.T) {
	var tr dayNightTracker

	day := true
	assert.True(t, tr.Update(sensor.DayNight{Indicator: &day}))

	day = false
	assert.False(t, tr.Update(sensor.DayNight{Indicator: &day}))
}

func TestDayNightThresholds(t *testing.T) {
	var tr dayNightTracker

	reading := func(v float64) sensor.DayNight {
		return sensor.DayNight{
			DayThresholdVolts:   6.0,
			NightThresholdVolts: 5.0,
			InputVolts:          v,
		}
	}

	assert.True(t, tr.Update(reading(7.0)))
	assert.False(t, tr.Update(reading(4.0)))
	assert.True(t, tr.Update(reading(6.0)))
	assert.False(t, tr.Update(reading(5.0)))
}

func TestDayNightDeadZoneRetainsState(t *testing.T) {
	var tr dayNightTracker

	reading := func(v float64) sensor.DayNight {
		return sensor.DayNight{
			DayThresholdVolts:   6.0,
			NightThresholdVolts: 5.0,
			InputVolts:          v,
		}
	}

	// Was day, voltage sags into the gap at dusk: still day.
	assert.True(t, tr.Update(reading(7.0)))
	assert.True(t, tr.Update(reading(5.5)))

	// Crosses the night threshold, then recovers into the gap: still night.
	assert.False(t, tr.Update(reading(4.8)))
	assert.False(t, tr.Update(reading(5.5)))
}
