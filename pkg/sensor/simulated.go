package sensor

import (
	"context"
	"math"
	"time"

	"github.com/skybright/solarcollect/pkg/metrics"
)

// Simulated is a Source that synthesizes a plausible solar day, for
// development and integration testing without hardware attached.
type Simulated struct {
	now func() time.Time
}

var _ Source = &Simulated{}

func NewSimulated() *Simulated {
	return &Simulated{now: time.Now}
}

// daylight returns 0 at night, rising to 1 at solar noon.
func (s *Simulated) daylight() float64 {
	t := s.now()
	hour := float64(t.Hour()) + float64(t.Minute())/60
	d := math.Sin((hour - 6) / 12 * math.Pi)
	if hour < 6 || hour > 18 || d < 0 {
		return 0
	}
	return d
}

func (s *Simulated) ReadSample(_ context.Context) (metrics.Sample, error) {
	d := s.daylight()

	pvVolts := 2.0 + 28.0*d
	pvAmps := 8.0 * d
	pvWatts := pvVolts * pvAmps

	var status uint16
	switch {
	case d > 0.8:
		status = 1 << 2 // Float
	case d > 0:
		status = 2 << 2 // MPPT
	}

	batteryVolts := 24.0 + 3.6*d
	batteryAmps := pvAmps*0.9 - 2.0
	dcLoadAmps := 1.5
	acLoadWatts := 180.0

	sample := metrics.Sample{
		metrics.MetricPVVolts:      pvVolts,
		metrics.MetricPVAmps:       pvAmps,
		metrics.MetricPVWatts:      pvWatts,
		metrics.MetricKWhToday:     2.4 * d,
		metrics.MetricKWhTotal:     1042.7,
		metrics.MetricChargingMode: string(DecodeChargeMode(status)),
		metrics.MetricBatteryTemp:  18.5,
		metrics.MetricBatteryVolts: batteryVolts,
		metrics.MetricBatteryAmps:  batteryAmps,
		metrics.MetricBatteryWatts: batteryVolts * batteryAmps,
		metrics.MetricDCLoadWatts:  batteryVolts * dcLoadAmps,
		metrics.MetricACLoadWatts:  acLoadWatts,
		metrics.MetricLoadWatts:    batteryVolts*dcLoadAmps + acLoadWatts,
	}

	return sample, nil
}

func (s *Simulated) ReadDayNight(_ context.Context) (DayNight, error) {
	return DayNight{
		DayThresholdVolts:   6.0,
		NightThresholdVolts: 5.0,
		InputVolts:          2.0 + 28.0*s.daylight(),
	}, nil
}
