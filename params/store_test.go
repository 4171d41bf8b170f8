package params

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	assert.Equal(t, 1.0, snap.Brightness)
	assert.Equal(t, 1.0, snap.Speed)
	assert.Equal(t, 2.2, snap.Gamma)
	assert.Equal(t, [3]float64{1, 1, 1}, snap.Balance)
	assert.Equal(t, 0, snap.Rotation)
}

func TestUpdateValid(t *testing.T) {
	s := NewStore()
	assert.NoError(t, s.Update("brightness", 0.5))
	assert.NoError(t, s.Update("speed", 2.0))
	assert.NoError(t, s.Update("gamma", 1.8))
	assert.NoError(t, s.Update("rgb_balance", [3]float64{1, 0.8, 0.6}))
	assert.NoError(t, s.Update("mirror_x", true))
	assert.NoError(t, s.Update("rotation", 180))

	snap := s.Snapshot()
	assert.Equal(t, 0.5, snap.Brightness)
	assert.Equal(t, 2.0, snap.Speed)
	assert.Equal(t, 1.8, snap.Gamma)
	assert.Equal(t, [3]float64{1, 0.8, 0.6}, snap.Balance)
	assert.True(t, snap.MirrorX)
	assert.False(t, snap.MirrorY)
	assert.Equal(t, 180, snap.Rotation)
}

func TestUpdateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"brightness", 1.5},
		{"brightness", -0.1},
		{"speed", 0.0},
		{"speed", -1.0},
		{"gamma", 0.05},
		{"gamma", 6.0},
		{"rgb_balance", [3]float64{2.5, 1, 1}},
		{"rotation", 45},
		{"nosuchparam", 1.0},
	}
	for _, tt := range tests {
		s := NewStore()
		before := s.Snapshot()
		err := s.Update(tt.name, tt.value)
		assert.Error(t, err, "update %s=%v should fail", tt.name, tt.value)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		// A rejected update must leave the store exactly as it was.
		assert.Equal(t, before, s.Snapshot())
	}
}

func TestSnapshotNeverTorn(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		vals := []float64{0.1, 0.9}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := vals[i%2]
			s.Update("brightness", v)
			s.Update("gamma", 1.0+v)
		}
	}()

	for i := 0; i < 5000; i++ {
		snap := s.Snapshot()
		// Every snapshot must be within declared ranges regardless of
		// concurrent updates.
		assert.NoError(t, Validate(snap))
	}
	close(stop)
	wg.Wait()
}

func TestApplyRejectsInvalidSet(t *testing.T) {
	s := NewStore()
	bad := Defaults()
	bad.Gamma = 9.0
	assert.Error(t, s.Apply(bad))
	assert.Equal(t, Defaults(), s.Snapshot())
}
