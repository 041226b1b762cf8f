package battery

import (
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Per-cell voltages for a sealed lead-acid battery at 20°C.
const (
	cellRestingVoltage      = 2.1
	cellFloatVoltage        = 2.3
	cellAbsorptionVoltage   = 2.4
	cellEqualizationVoltage = 2.433333
)

// Estimator tracks state of charge for a lead-acid bank by coulomb counting.
// Estimating capacity under load or heavy charging is quite difficult, so
// the voltage-based estimate only applies while float charging.
type Estimator struct {
	capacityAh float64
	cellCount  int
	store      Store
}

func NewEstimator(store Store, capacityAh float64, cellCount int) (*Estimator, error) {
	if store == nil {
		return nil, pkgerrors.New("store is nil")
	}
	if capacityAh <= 0 {
		return nil, pkgerrors.Errorf("capacity must be positive, got %.2f Ah", capacityAh)
	}
	if cellCount <= 0 {
		return nil, pkgerrors.Errorf("cell count must be positive, got %d", cellCount)
	}

	return &Estimator{
		capacityAh: capacityAh,
		cellCount:  cellCount,
		store:      store,
	}, nil
}

func (e *Estimator) Capacity() float64 {
	return e.capacityAh
}

// PercentCharged returns the current state of charge, clamped to [0, 100].
func (e *Estimator) PercentCharged() (float64, error) {
	var pct float64
	err := e.store.View(func(st State) {
		pct = clamp(st.RemainingCapacityAh/e.capacityAh*100, 0, 100)
	})
	return pct, err
}

// RemainingCapacity returns the remaining amp-hours, clamped to
// [0, capacity].
func (e *Estimator) RemainingCapacity() (float64, error) {
	var ah float64
	err := e.store.View(func(st State) {
		ah = clamp(st.RemainingCapacityAh, 0, e.capacityAh)
	})
	return ah, err
}

// State returns the raw persisted record.
func (e *Estimator) State() (State, error) {
	var st State
	err := e.store.View(func(s State) { st = s })
	return st, err
}

func (e *Estimator) SetPercentCharged(pct float64) error {
	return e.SetRemainingCapacity(e.capacityAh * (pct / 100))
}

func (e *Estimator) SetRemainingCapacity(ah float64) error {
	return e.store.Update(func(st *State) {
		oldAh := st.RemainingCapacityAh
		newAh := clamp(ah, 0, e.capacityAh)
		st.RemainingCapacityAh = newAh
		logrus.Infof("updated battery charge state: was %.2f Ah, now %.2f Ah", oldAh, newAh)
	})
}

// Update integrates one interval of net current into the persisted charge.
// ampHours is the interval's estimated net current times the interval
// duration in hours; positive while charging. The matching correction
// factor is applied before integration and the result is clamped to
// [0, capacity].
func (e *Estimator) Update(ampHours float64) error {
	return e.store.Update(func(st *State) {
		if ampHours > 0 {
			ampHours *= st.ChargingCorrectionFactor
		} else {
			ampHours *= st.DischargingCorrectionFactor
		}

		newRemaining := st.RemainingCapacityAh + ampHours
		st.RemainingCapacityAh = clamp(newRemaining, 0, e.capacityAh)

		logrus.WithFields(logrus.Fields{
			"remainingAh": st.RemainingCapacityAh,
			"deltaAh":     ampHours,
		}).Debug("battery SoC updated")
	})
}

// EstimateCapacityFromVoltage returns an improved estimate of the remaining
// capacity, or 0.0 when no improved estimate is available. Callers must
// treat 0.0 as "do not overwrite", never as an actual capacity. The
// estimate only applies while float charging with near-zero net current
// and the per-cell voltage within 0.1 V of nominal float voltage.
func (e *Estimator) EstimateCapacityFromVoltage(voltage, current float64, floatCharging bool, _ float64) float64 {
	cRate := current / e.capacityAh
	cellVoltage := voltage / float64(e.cellCount)

	if !floatCharging || abs(cellVoltage-cellFloatVoltage) > 0.1 {
		return 0.0
	}

	// Floating, charge rate is <= 0.01C: the pack is full.
	if cRate >= 0.0 && cRate <= 0.01 {
		return e.capacityAh
	}

	// Floating, charge rate is 0.01C - 0.1C: linear correction near full.
	if cRate > 0.01 && cRate <= 0.1 {
		return e.capacityAh * (1.0 + 0.2*(0.01-cRate))
	}

	return 0.0
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
