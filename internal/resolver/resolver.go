// Package resolver turns opaque catalog identifiers into playable stream
// URLs. Resolution runs a secret extraction, an upstream payload fetch and a
// symmetric decryption; every failure along that chain collapses into the
// embed fallback, because the caller's only recourse is the same either way.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

type Config struct {
	// UpstreamURL is the base of the catalog's internal source API.
	UpstreamURL string
	// Referer is required by the upstream on every request; without it the
	// upstream blocks the fetch.
	Referer      string
	EmbedBaseURL string
	ScriptURL    string
	// FallbackSecret is used when extraction from the remote script fails.
	FallbackSecret string
}

type ResolveParams struct {
	SourceID  string
	MediaType MediaType
	Season    int
	Episode   int
}

type ResolveResult struct {
	URL      string
	Fallback bool
	EmbedURL string
}

type Resolver struct {
	client  httpDoer
	secrets *SecretSource
	cfg     Config
	logger  *slog.Logger
}

func New(client httpDoer, cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		secrets: NewSecretSource(client, SecretSourceConfig{
			ScriptURL:      cfg.ScriptURL,
			FallbackSecret: cfg.FallbackSecret,
		}, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve is total: it never returns an error to the caller. Any failure is
// logged and reported as the fallback outcome with a prebuilt embed URL.
func (r *Resolver) Resolve(ctx context.Context, params *ResolveParams) ResolveResult {
	fallback := ResolveResult{
		Fallback: true,
		EmbedURL: r.EmbedURL(params),
	}

	secret := r.secrets.Fetch(ctx)

	payload, err := r.fetchPayload(ctx, params)
	if err != nil {
		r.logger.InfoContext(ctx, "upstream payload fetch failed", "source_id", params.SourceID, "error", err)
		return fallback
	}

	playableURL, err := Decrypt(payload, secret)
	if err != nil {
		r.logger.InfoContext(ctx, "payload decryption failed", "source_id", params.SourceID, "error", err)
		return fallback
	}

	return ResolveResult{URL: playableURL}
}

type upstreamResponse struct {
	Data struct {
		Source string `json:"source"`
	} `json:"data"`
}

func (r *Resolver) fetchPayload(ctx context.Context, params *ResolveParams) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", r.cfg.UpstreamURL, params.MediaType, params.SourceID)
	if params.MediaType == MediaTypeTV {
		url += "?s=" + strconv.Itoa(params.Season) + "&e=" + strconv.Itoa(params.Episode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Referer", r.cfg.Referer)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}

	var upstream upstreamResponse
	if err := json.Unmarshal(body, &upstream); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if upstream.Data.Source == "" {
		return "", fmt.Errorf("payload source is empty")
	}

	return upstream.Data.Source, nil
}
