package sensor

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ADC reads one channel continuously for the given window and returns the
// sampled values in volts, already corrected for gain. Chip-level sampling
// and calibration live behind this interface.
type ADC interface {
	Sample(ctx context.Context, channel int, window time.Duration) ([]float64, error)
}

// Transducer converts raw ADC volts into physical units using a zero offset
// and a scale, averaged over a sampling window:
//
//	value = Offset + (ZeroVolts - mean(samples)) * Scale
type Transducer struct {
	Name      string
	Channel   int
	ZeroVolts float64 // ADC reading at zero physical units
	Scale     float64 // physical units per volt away from zero
	Offset    float64 // constant added after scaling
	Window    time.Duration
}

// Read samples the transducer's channel for the window and returns the
// averaged physical value.
func (t Transducer) Read(ctx context.Context, adc ADC) (float64, error) {
	samples, err := adc.Sample(ctx, t.Channel, t.Window)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to sample %s on channel %d", t.Name, t.Channel)
	}
	if len(samples) == 0 {
		return 0, pkgerrors.Errorf("no samples for %s on channel %d", t.Name, t.Channel)
	}

	minV, maxV := samples[0], samples[0]
	var sum float64
	for _, v := range samples {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := sum / float64(len(samples))
	value := t.Offset + (t.ZeroVolts-mean)*t.Scale

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{
			"min":      t.Offset + (t.ZeroVolts-maxV)*t.Scale,
			"avg":      value,
			"max":      t.Offset + (t.ZeroVolts-minV)*t.Scale,
			"readings": len(samples),
		}).Debugf("%s", t.Name)
	}

	return value, nil
}

// Transducers for the reference deployment. The battery current is 120 Hz
// pulsed from DC->AC conversion, so its window must be an even multiple of
// the 120 Hz period.
func BatteryCurrentTransducer() Transducer {
	return Transducer{
		Name:      "battery amps",
		Channel:   0,
		ZeroVolts: 2.56, // full scale of the transducer (5.12 V), divided in half
		Scale:     1.0 / 0.043,
		Window:    200 * time.Millisecond,
	}
}

func DCLoadCurrentTransducer() Transducer {
	return Transducer{
		Name:      "dc amps",
		Channel:   1,
		ZeroVolts: 2.5505,
		Scale:     -1.0 / 0.040, // inverted to make load positive
		Window:    100 * time.Millisecond,
	}
}

func ACLoadPowerTransducer() Transducer {
	return Transducer{
		Name:      "ac power",
		Channel:   2,
		ZeroVolts: 0,
		Scale:     -600,
		Offset:    30, // the inverter itself uses a bit of power
		Window:    200 * time.Millisecond,
	}
}
