package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// The upstream player script assigns the key as a chain of single-quoted
// string literals. The assignment is matched as text and the literals are
// joined; the fetched script is never evaluated.
var (
	secretAssignRe  = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*\s*=\s*('[^']*'(?:\s*\+\s*'[^']*')+)`)
	secretLiteralRe = regexp.MustCompile(`'([^']*)'`)
)

type SecretSourceConfig struct {
	// ScriptURL points at the player script, or at an HTML page that
	// references it via a script tag.
	ScriptURL      string
	FallbackSecret string
}

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type SecretSource struct {
	client httpDoer
	cfg    SecretSourceConfig
	logger *slog.Logger
}

func NewSecretSource(client httpDoer, cfg SecretSourceConfig, logger *slog.Logger) *SecretSource {
	return &SecretSource{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch returns the current decryption secret. It is total: any failure
// along the way falls back to the compiled-in secret, so the result is only
// provisionally correct and is validated downstream by decryption itself.
func (s *SecretSource) Fetch(ctx context.Context) string {
	secret, err := s.extract(ctx)
	if err != nil {
		s.logger.InfoContext(ctx, "secret extraction failed, using fallback", "error", err)
		return s.cfg.FallbackSecret
	}

	return secret
}

func (s *SecretSource) extract(ctx context.Context) (string, error) {
	body, contentType, err := s.get(ctx, s.cfg.ScriptURL)
	if err != nil {
		return "", err
	}

	if isHTML(contentType, body) {
		scriptURL, err := findScriptURL(s.cfg.ScriptURL, body)
		if err != nil {
			return "", err
		}

		body, _, err = s.get(ctx, scriptURL)
		if err != nil {
			return "", err
		}
	}

	return parseSecret(body)
}

func (s *SecretSource) get(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", "", err
	}

	return string(body), resp.Header.Get("Content-Type"), nil
}

// parseSecret scans script text for the literal-concatenation assignment and
// joins the literals.
func parseSecret(script string) (string, error) {
	m := secretAssignRe.FindStringSubmatch(script)
	if m == nil {
		return "", fmt.Errorf("secret assignment not found")
	}

	var b strings.Builder
	for _, lit := range secretLiteralRe.FindAllStringSubmatch(m[1], -1) {
		b.WriteString(lit[1])
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("secret assignment is empty")
	}

	return b.String(), nil
}

func isHTML(contentType, body string) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}

	trimmed := strings.TrimSpace(body)

	return strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html")
}

// findScriptURL walks the page for the first script tag with a src attribute
// and resolves it against the page URL.
func findScriptURL(pageURL, body string) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	src := findScriptSrc(doc)
	if src == "" {
		return "", fmt.Errorf("no script tag found")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	ref, err := url.Parse(src)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(ref).String(), nil
}

func findScriptSrc(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "src" && attr.Val != "" {
				return attr.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if src := findScriptSrc(c); src != "" {
			return src
		}
	}

	return ""
}
