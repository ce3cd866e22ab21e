package playback

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	state   State
	seeks   []float64
	playErr error
}

func (f *fakePlayer) Play() error {
	if f.playErr != nil {
		return f.playErr
	}
	f.state.IsPlaying = true
	return nil
}

func (f *fakePlayer) Pause() error {
	f.state.IsPlaying = false
	return nil
}

func (f *fakePlayer) Seek(seconds float64) error {
	f.seeks = append(f.seeks, seconds)
	f.state.CurrentTime = seconds
	return nil
}

func (f *fakePlayer) State() State {
	return f.state
}

func TestReconcilerConvergence(t *testing.T) {
	// two clients, both starting paused at zero
	playerA := &fakePlayer{}
	playerB := &fakePlayer{}
	clientA := NewReconciler(playerA, slog.Default())
	clientB := NewReconciler(playerB, slog.Default())

	stateFromA := RemoteState{IsPlaying: true, CurrentTime: 30, UpdatedAt: 100}
	stateFromB := RemoteState{IsPlaying: false, CurrentTime: 45, UpdatedAt: 200}

	// delivery order differs per client; the logical clock decides
	assert.True(t, clientA.Apply(stateFromA))
	assert.True(t, clientA.Apply(stateFromB))

	assert.True(t, clientB.Apply(stateFromB))
	assert.False(t, clientB.Apply(stateFromA), "older state must be discarded")

	for name, p := range map[string]*fakePlayer{"A": playerA, "B": playerB} {
		assert.False(t, p.state.IsPlaying, "client %s must converge to B's paused state", name)
		assert.InDelta(t, 45, p.state.CurrentTime, 0.001, "client %s must converge to B's position", name)
	}
}

func TestReconcilerDriftThreshold(t *testing.T) {
	tests := []struct {
		name       string
		localTime  float64
		remoteTime float64
		wantSeek   bool
	}{
		{"within tolerance", 100, 101.5, false},
		{"beyond tolerance", 100, 105, true},
		{"exactly at tolerance", 100, 102, false},
		{"behind beyond tolerance", 100, 95, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{state: State{CurrentTime: tt.localTime}}
			r := NewReconciler(player, slog.Default())

			require.True(t, r.Apply(RemoteState{CurrentTime: tt.remoteTime, UpdatedAt: 1}))

			if tt.wantSeek {
				require.Len(t, player.seeks, 1)
				assert.InDelta(t, tt.remoteTime, player.seeks[0], 0.001)
			} else {
				assert.Empty(t, player.seeks, "no forced seek within the tolerance band")
			}
		})
	}
}

func TestReconcilerMatchesPlayState(t *testing.T) {
	player := &fakePlayer{}
	r := NewReconciler(player, slog.Default())

	require.True(t, r.Apply(RemoteState{IsPlaying: true, CurrentTime: 0, UpdatedAt: 1}))
	assert.True(t, player.state.IsPlaying)

	require.True(t, r.Apply(RemoteState{IsPlaying: false, CurrentTime: 0, UpdatedAt: 2}))
	assert.False(t, player.state.IsPlaying)
}

func TestReconcilerSurfacesBlockedPlayback(t *testing.T) {
	blockErr := errors.New("autoplay blocked")
	player := &fakePlayer{playErr: blockErr}
	r := NewReconciler(player, slog.Default())

	var surfaced error
	r.OnPlaybackBlocked(func(err error) { surfaced = err })

	require.True(t, r.Apply(RemoteState{IsPlaying: true, UpdatedAt: 1}))
	assert.ErrorIs(t, surfaced, blockErr, "rejected play must surface, not retry")
}

func TestReconcilerDiscardsStaleClock(t *testing.T) {
	player := &fakePlayer{}
	r := NewReconciler(player, slog.Default())

	require.True(t, r.Apply(RemoteState{CurrentTime: 45, UpdatedAt: 10}))
	assert.False(t, r.Apply(RemoteState{CurrentTime: 99, UpdatedAt: 10}), "equal clock is stale")
	assert.False(t, r.Apply(RemoteState{CurrentTime: 99, UpdatedAt: 9}))
	assert.Equal(t, int64(10), r.LastUpdatedAt())
	assert.InDelta(t, 45, player.state.CurrentTime, 0.001)
}
