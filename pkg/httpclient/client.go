// Package httpclient provides the outbound HTTP clients used when talking
// to upstream content providers. Hosts that block plain Go clients are
// reached through a browser-like TLS fingerprint.
package httpclient

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

type Config struct {
	// Hosts reached with a browser TLS fingerprint instead of the default
	// transport.
	UTLSHosts []string
	Timeout   time.Duration
}

type Client struct {
	defaultClient *http.Client
	utlsClient    *http.Client
	utlsHosts     []string
	logger        *slog.Logger
}

func New(cfg *Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		defaultClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: timeout,
			},
			Timeout: timeout,
		},
		utlsClient: &http.Client{
			Transport: newUTLSRoundTripper(),
			Timeout:   timeout,
		},
		utlsHosts: cfg.UTLSHosts,
		logger:    logger,
	}
}

// Do executes the request, picking the fingerprinted client for hosts that
// require it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.needsUTLS(req.URL.Host) {
		c.logger.DebugContext(req.Context(), "using utls client", "host", req.URL.Host)
		return c.utlsClient.Do(req)
	}

	return c.defaultClient.Do(req)
}

func (c *Client) needsUTLS(host string) bool {
	lower := strings.ToLower(host)
	for _, h := range c.utlsHosts {
		if strings.Contains(lower, h) {
			return true
		}
	}

	return false
}

// utlsRoundTripper dials with a Chrome TLS fingerprint and speaks h2 or
// http/1.1 depending on what the server negotiates.
type utlsRoundTripper struct {
	dialer      *net.Dialer
	h2Transport *http2.Transport
}

func newUTLSRoundTripper() *utlsRoundTripper {
	return &utlsRoundTripper{
		dialer: &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 60 * time.Second,
		},
		h2Transport: &http2.Transport{},
	}
}

func (t *utlsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return http.DefaultTransport.RoundTrip(req)
	}

	addr := req.URL.Host
	if !strings.Contains(addr, ":") {
		addr += ":443"
	}

	conn, err := t.dialer.DialContext(req.Context(), "tcp4", addr)
	if err != nil {
		return nil, err
	}

	utlsConn := utls.UClient(conn, &utls.Config{ServerName: req.URL.Hostname()}, utls.HelloChrome_120)
	if err := utlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	if utlsConn.ConnectionState().NegotiatedProtocol == "h2" {
		h2Conn, err := t.h2Transport.NewClientConn(utlsConn)
		if err != nil {
			conn.Close()
			return nil, err
		}

		return h2Conn.RoundTrip(req)
	}

	if err := req.Write(utlsConn); err != nil {
		utlsConn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(utlsConn), req)
	if err != nil {
		utlsConn.Close()
		return nil, err
	}

	resp.Body = &connCloser{resp.Body, utlsConn}

	return resp, nil
}

type connCloser struct {
	io.ReadCloser
	conn net.Conn
}

func (c *connCloser) Close() error {
	c.ReadCloser.Close()
	return c.conn.Close()
}
