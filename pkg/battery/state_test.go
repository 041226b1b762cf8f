package battery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "battery.state")
}

func TestFileStoreMissingFileUsesDefaults(t *testing.T) {
	s := NewFileStore(tempStatePath(t))

	var st State
	require.NoError(t, s.View(func(got State) { st = got }))

	assert.Equal(t, 0.0, st.RemainingCapacityAh)
	assert.Equal(t, 1.0, st.ChargingCorrectionFactor)
	assert.Equal(t, 1.0, st.DischargingCorrectionFactor)
}

func TestFileStoreCorruptFileUsesDefaults(t *testing.T) {
	path := tempStatePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewFileStore(path)

	var st State
	require.NoError(t, s.View(func(got State) { st = got }))
	assert.Equal(t, 1.0, st.ChargingCorrectionFactor)
}

func TestFileStorePartialFileMergesOverDefaults(t *testing.T) {
	path := tempStatePath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"remaining_capacity_ah": 42.5}`), 0644))

	s := NewFileStore(path)

	var st State
	require.NoError(t, s.View(func(got State) { st = got }))
	assert.Equal(t, 42.5, st.RemainingCapacityAh)
	assert.Equal(t, 1.0, st.ChargingCorrectionFactor)
	assert.Equal(t, 1.0, st.DischargingCorrectionFactor)
}

func TestFileStoreUpdateWritesBack(t *testing.T) {
	path := tempStatePath(t)
	s := NewFileStore(path)

	require.NoError(t, s.Update(func(st *State) {
		st.RemainingCapacityAh = 10.25
	}))

	// A fresh store against the same path sees the written value.
	s2 := NewFileStore(path)
	var st State
	require.NoError(t, s2.View(func(got State) { st = got }))
	assert.Equal(t, 10.25, st.RemainingCapacityAh)
}

func TestFileStoreUpdateWritesBackOnPanic(t *testing.T) {
	path := tempStatePath(t)
	s := NewFileStore(path)

	require.Panics(t, func() {
		_ = s.Update(func(st *State) {
			st.RemainingCapacityAh = 7
			panic("mutation failed")
		})
	})

	var st State
	require.NoError(t, s.View(func(got State) { st = got }))
	assert.Equal(t, 7.0, st.RemainingCapacityAh)
}

func TestFileStoreRepeatedReadsDoNotDrift(t *testing.T) {
	path := tempStatePath(t)
	s := NewFileStore(path)
	require.NoError(t, s.Update(func(st *State) { st.RemainingCapacityAh = 55.5 }))

	for i := 0; i < 5; i++ {
		var st State
		require.NoError(t, s.View(func(got State) { st = got }))
		assert.Equal(t, 55.5, st.RemainingCapacityAh)
	}
}
