package httpclient

import "net/http"

// PinnedHeaderTransport sets fixed headers on every outgoing request.
// Upstream media hosts reject requests without a specific Referer, so the
// transport applies it below the level of any manifest or segment fetch.
type PinnedHeaderTransport struct {
	Base    http.RoundTripper
	Headers map[string]string
}

func (t *PinnedHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.Headers {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(clone)
}
