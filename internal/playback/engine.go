// Package playback wraps an adaptive-bitrate pipeline around a resolved
// stream URL and keeps a local player converged on the party's shared state.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cinesync/server/pkg/httpclient"
)

var (
	// ErrStreamFatal is sent once on Errors() when the pipeline gives up.
	// The caller is expected to switch to the embed fallback, not retry.
	ErrStreamFatal = errors.New("unrecoverable stream failure")
	ErrNotLoaded   = errors.New("no stream loaded")
)

// consecutive playlist refresh failures before the pipeline is declared dead
const fatalFailureThreshold = 3

type State struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Volume      float64 `json:"volume"`
}

// Engine is an HLS session bound to one playable URL at a time. Every
// manifest and segment request carries the upstream's required Referer
// header through a pinned-header transport.
type Engine struct {
	client          *http.Client
	logger          *slog.Logger
	refreshInterval time.Duration

	mu         sync.Mutex
	loaded     bool
	playing    bool
	position   float64
	resumedAt  time.Time
	duration   float64
	volume     float64
	mediaURL   string
	cancel     context.CancelFunc
	errs       chan error
}

func NewEngine(referer string, logger *slog.Logger) *Engine {
	return &Engine{
		client: &http.Client{
			Transport: &httpclient.PinnedHeaderTransport{
				Headers: map[string]string{"Referer": referer},
			},
			Timeout: 15 * time.Second,
		},
		logger:          logger,
		refreshInterval: 5 * time.Second,
		volume:          1,
		errs:            make(chan error, 1),
	}
}

// Load binds the engine to a new stream URL. Any previously attached
// pipeline is torn down first so two pipelines never feed the same sink.
func (e *Engine) Load(ctx context.Context, rawURL string) error {
	e.teardown()

	base, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse stream url: %w", err)
	}

	body, err := e.fetchPlaylist(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	mediaURL := rawURL
	if isMasterPlaylist(body) {
		variants := parseMasterPlaylist(base, body)
		if len(variants) == 0 {
			return fmt.Errorf("master playlist has no variants")
		}

		best := variants[0]
		for _, v := range variants[1:] {
			if v.bandwidth > best.bandwidth {
				best = v
			}
		}
		mediaURL = best.uri

		body, err = e.fetchPlaylist(ctx, mediaURL)
		if err != nil {
			return fmt.Errorf("failed to load media playlist: %w", err)
		}
	}

	duration, segments := parseMediaPlaylist(body)
	if segments == 0 {
		return fmt.Errorf("media playlist has no segments")
	}

	monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	// each load gets its own error channel so a fatal from a torn-down
	// pipeline can neither block its monitor nor leak into the new stream
	errs := make(chan error, 1)

	e.mu.Lock()
	e.loaded = true
	e.playing = false
	e.position = 0
	e.duration = duration
	e.mediaURL = mediaURL
	e.cancel = cancel
	e.errs = errs
	e.mu.Unlock()

	go e.monitor(monitorCtx, mediaURL, errs)

	e.logger.InfoContext(ctx, "stream loaded", "url", rawURL, "duration", duration, "segments", segments)

	return nil
}

// monitor refreshes the media playlist and declares the stream dead after
// repeated failures. It never retries past the threshold.
func (e *Engine) monitor(ctx context.Context, mediaURL string, errs chan<- error) {
	ticker := time.NewTicker(e.refreshInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.fetchPlaylist(ctx, mediaURL); err != nil {
				failures++
				e.logger.InfoContext(ctx, "playlist refresh failed", "failures", failures, "error", err)
				if failures >= fatalFailureThreshold {
					errs <- ErrStreamFatal
					return
				}

				continue
			}

			failures = 0
		}
	}
}

func (e *Engine) fetchPlaylist(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return ErrNotLoaded
	}
	if e.playing {
		return nil
	}

	e.playing = true
	e.resumedAt = time.Now()

	return nil
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return ErrNotLoaded
	}
	if !e.playing {
		return nil
	}

	e.position = e.currentTimeLocked()
	e.playing = false

	return nil
}

func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return ErrNotLoaded
	}

	if seconds < 0 {
		seconds = 0
	}
	if seconds > e.duration {
		seconds = e.duration
	}

	e.position = seconds
	if e.playing {
		e.resumedAt = time.Now()
	}

	return nil
}

func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	e.volume = v
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		IsPlaying:   e.playing,
		CurrentTime: e.currentTimeLocked(),
		Duration:    e.duration,
		Volume:      e.volume,
	}
}

// Errors delivers at most one fatal pipeline error for the currently
// loaded stream. The channel is replaced on every Load, so it must be
// re-read after a reload.
func (e *Engine) Errors() <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.errs
}

// Close tears the pipeline down. Safe to call more than once.
func (e *Engine) Close() {
	e.teardown()
}

func (e *Engine) teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	e.loaded = false
	e.playing = false
	e.position = 0
	e.duration = 0
	e.mediaURL = ""
}

func (e *Engine) currentTimeLocked() float64 {
	t := e.position
	if e.playing {
		t += time.Since(e.resumedAt).Seconds()
	}
	if t > e.duration {
		t = e.duration
	}

	return t
}
