package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReferer = "https://catalog.example/"

func newTestResolver(t *testing.T, upstreamURL, scriptURL string) *Resolver {
	t.Helper()

	return New(http.DefaultClient, Config{
		UpstreamURL:    upstreamURL,
		Referer:        testReferer,
		EmbedBaseURL:   "https://embed.example",
		ScriptURL:      scriptURL,
		FallbackSecret: "fallback-secret",
	}, slog.Default())
}

func newScriptServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mid := len(secret) / 2
		fmt.Fprintf(w, "var k = '%s' + '%s';", secret[:mid], secret[mid:])
	}))
}

func TestResolveMovie(t *testing.T) {
	const secret = "rotating-secret"
	payload := encrypt(t, "https://cdn.example/stream.m3u8", secret)

	var gotReferer string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		assert.Equal(t, "/movie/603", r.URL.Path)
		fmt.Fprintf(w, `{"data":{"source":%q}}`, payload)
	}))
	defer upstream.Close()

	script := newScriptServer(t, secret)
	defer script.Close()

	res := newTestResolver(t, upstream.URL, script.URL).Resolve(context.Background(), &ResolveParams{
		SourceID:  "603",
		MediaType: MediaTypeMovie,
	})

	require.False(t, res.Fallback)
	assert.Equal(t, "https://cdn.example/stream.m3u8", res.URL)
	assert.Equal(t, testReferer, gotReferer, "upstream fetch must carry the pinned referer")
}

func TestResolveEpisodeQuery(t *testing.T) {
	const secret = "rotating-secret"
	payload := encrypt(t, "https://cdn.example/ep.m3u8", secret)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1399", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("s"))
		assert.Equal(t, "5", r.URL.Query().Get("e"))
		fmt.Fprintf(w, `{"data":{"source":%q}}`, payload)
	}))
	defer upstream.Close()

	script := newScriptServer(t, secret)
	defer script.Close()

	res := newTestResolver(t, upstream.URL, script.URL).Resolve(context.Background(), &ResolveParams{
		SourceID:  "1399",
		MediaType: MediaTypeTV,
		Season:    2,
		Episode:   5,
	})

	require.False(t, res.Fallback)
	assert.Equal(t, "https://cdn.example/ep.m3u8", res.URL)
}

func TestResolveFallbackIsTotal(t *testing.T) {
	const secret = "rotating-secret"

	tests := []struct {
		name     string
		upstream http.HandlerFunc
	}{
		{"bad gateway", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"empty source", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"source":""}}`))
		}},
		{"garbage payload", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"source":"%%%not-base64%%%"}}`))
		}},
		{"wrong secret", func(w http.ResponseWriter, r *http.Request) {
			payload := encrypt(t, "https://cdn.example/stream.m3u8", "a-different-secret")
			fmt.Fprintf(w, `{"data":{"source":%q}}`, payload)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>blocked</html>"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(tt.upstream)
			defer upstream.Close()

			script := newScriptServer(t, secret)
			defer script.Close()

			res := newTestResolver(t, upstream.URL, script.URL).Resolve(context.Background(), &ResolveParams{
				SourceID:  "603",
				MediaType: MediaTypeMovie,
			})

			assert.True(t, res.Fallback)
			assert.Empty(t, res.URL)
			assert.Equal(t, "https://embed.example/embed/movie/603", res.EmbedURL)
		})
	}
}

func TestResolveFallbackOnUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	script := newScriptServer(t, "rotating-secret")
	defer script.Close()

	res := newTestResolver(t, upstream.URL, script.URL).Resolve(context.Background(), &ResolveParams{
		SourceID:  "603",
		MediaType: MediaTypeMovie,
	})

	assert.True(t, res.Fallback)
}

func TestEmbedURL(t *testing.T) {
	r := newTestResolver(t, "http://upstream", "http://script")

	assert.Equal(t, "https://embed.example/embed/movie/603", r.EmbedURL(&ResolveParams{
		SourceID:  "603",
		MediaType: MediaTypeMovie,
	}))
	assert.Equal(t, "https://embed.example/embed/tv/1399/2/5", r.EmbedURL(&ResolveParams{
		SourceID:  "1399",
		MediaType: MediaTypeTV,
		Season:    2,
		Episode:   5,
	}))
}
