package battery

import (
	"bytes"
	"encoding/json"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// State is the persisted battery bookkeeping record. It survives process
// restarts and is the only thing the estimator keeps between ticks.
type State struct {
	RemainingCapacityAh         float64 `json:"remaining_capacity_ah"`
	ChargingCorrectionFactor    float64 `json:"charging_correction_factor"`
	DischargingCorrectionFactor float64 `json:"discharging_correction_factor"`
}

func defaultState() State {
	return State{
		RemainingCapacityAh:         0,
		ChargingCorrectionFactor:    1,
		DischargingCorrectionFactor: 1,
	}
}

// Store gives scoped access to the persisted battery state. Update runs the
// mutation against the current record and writes the record back on every
// exit path, including panics. Single-writer: no cross-process locking.
type Store interface {
	Update(mutate func(*State)) error
	View(read func(State)) error
}

var _ Store = &FileStore{}

// FileStore keeps the state as a JSON object at a fixed path. A missing or
// corrupt file falls back to defaults with a warning; it is never fatal.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Update(mutate func(*State)) (err error) {
	st := s.load()
	defer func() {
		if werr := s.write(st); werr != nil && err == nil {
			err = werr
		}
	}()
	mutate(&st)
	return nil
}

func (s *FileStore) View(read func(State)) error {
	read(s.load())
	return nil
}

func (s *FileStore) load() State {
	st := defaultState()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("failed to read battery state file %s, using defaults: %v", s.path, err)
		}
		return st
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return st
	}

	// Unmarshal on top of the defaults so missing keys keep their default
	// values.
	if err := json.Unmarshal(b, &st); err != nil {
		logrus.Warnf("corrupt battery state file %s, using defaults: %v", s.path, err)
		return defaultState()
	}

	return st
}

func (s *FileStore) write(st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal battery state")
	}

	if err := os.WriteFile(s.path, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write battery state file %s", s.path)
	}

	return nil
}
