package playback

import (
	"log/slog"
	"math"
	"sync"
)

// DriftTolerance is the band within which a local player is left alone.
// Forcing a seek on smaller differences causes seek-thrashing on normal
// network jitter.
const DriftTolerance = 2.0

// RemoteState is a shared player state received from the party channel.
// UpdatedAt is a logical clock: channel delivery order across clients is not
// guaranteed to match write order, so ordering relies on it alone.
type RemoteState struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	UpdatedAt   int64   `json:"updated_at"`
}

// TransportControls is the slice of the Engine the reconciler needs.
type TransportControls interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	State() State
}

// Reconciler converges a local player on the party's shared state using
// last-write-wins plus drift correction. Concurrent controller writes
// overwrite each other; that is an accepted trade-off, not a bug.
type Reconciler struct {
	player TransportControls
	logger *slog.Logger

	// onPlaybackBlocked fires when a forced play is rejected by the player
	// (autoplay-policy analog). The state is not retried; the UI surfaces a
	// resume affordance instead.
	onPlaybackBlocked func(error)

	mu            sync.Mutex
	lastUpdatedAt int64
}

func NewReconciler(player TransportControls, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		player: player,
		logger: logger,
	}
}

func (r *Reconciler) OnPlaybackBlocked(f func(error)) {
	r.onPlaybackBlocked = f
}

// Apply reconciles the local player against a received state. Stale states
// (logical clock not newer than the last applied one) are discarded; Apply
// reports whether the state was accepted.
func (r *Reconciler) Apply(remote RemoteState) bool {
	r.mu.Lock()
	if remote.UpdatedAt <= r.lastUpdatedAt {
		r.mu.Unlock()
		r.logger.Debug("discarding stale player state", "updated_at", remote.UpdatedAt, "last", r.lastUpdatedAt)
		return false
	}
	r.lastUpdatedAt = remote.UpdatedAt
	r.mu.Unlock()

	local := r.player.State()

	if drift := math.Abs(local.CurrentTime - remote.CurrentTime); drift > DriftTolerance {
		if err := r.player.Seek(remote.CurrentTime); err != nil {
			r.logger.Info("drift correction seek rejected", "error", err)
		}
	}

	if remote.IsPlaying != local.IsPlaying {
		if remote.IsPlaying {
			if err := r.player.Play(); err != nil {
				r.logger.Info("forced play rejected", "error", err)
				if r.onPlaybackBlocked != nil {
					r.onPlaybackBlocked(err)
				}
			}
		} else {
			if err := r.player.Pause(); err != nil {
				r.logger.Info("forced pause rejected", "error", err)
			}
		}
	}

	return true
}

// LastUpdatedAt returns the logical clock of the last accepted state.
func (r *Reconciler) LastUpdatedAt() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastUpdatedAt
}
