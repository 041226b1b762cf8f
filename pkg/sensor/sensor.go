package sensor

import (
	"context"

	"github.com/skybright/solarcollect/pkg/metrics"
)

// ChargeMode is the charge controller's reported charging stage.
type ChargeMode string

const (
	ChargeModeNone         ChargeMode = "Not charging"
	ChargeModeFloat        ChargeMode = "Float"
	ChargeModeMPPT         ChargeMode = "MPPT"
	ChargeModeEqualization ChargeMode = "Equalization"
)

// DecodeChargeMode extracts the charging mode from bits 2-3 of the charging
// equipment status register.
func DecodeChargeMode(status uint16) ChargeMode {
	switch (status & 0x000C) >> 2 {
	case 1:
		return ChargeModeFloat
	case 2:
		return ChargeModeMPPT
	case 3:
		return ChargeModeEqualization
	default:
		return ChargeModeNone
	}
}

// DayNight is the controller's day/night signal. Indicator is set when the
// controller reports day/night directly; otherwise callers derive the state
// from the input voltage against the two thresholds, with hysteresis in the
// gap between them.
type DayNight struct {
	Indicator           *bool // true = daytime, nil when unsupported
	DayThresholdVolts   float64
	NightThresholdVolts float64
	InputVolts          float64
}

// Source supplies one tick's worth of named instantaneous readings. Reads
// are synchronous and block for their configured sampling duration; that is
// the dominant per-tick latency and expected.
//
// Implementations wrap the actual charge-controller and ADC drivers, which
// are injected by the integrator.
type Source interface {
	ReadSample(ctx context.Context) (metrics.Sample, error)
	ReadDayNight(ctx context.Context) (DayNight, error)
}
