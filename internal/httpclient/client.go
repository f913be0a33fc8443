package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Options tunes the client shared by every keyword session of a run.
type Options struct {
	TLS     *tls.Config
	Timeout time.Duration
	// NoRedirects returns 3xx responses to the caller instead of following them.
	NoRedirects bool
}

// New creates a tuned HTTP client. Sessions are sequential, so the pool only
// needs a handful of idle connections per host.
func New(opts Options) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		TLSClientConfig:        opts.TLS,
		TLSHandshakeTimeout:    10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		IdleConnTimeout:        60 * time.Second,
		MaxIdleConns:           20,
		MaxIdleConnsPerHost:    4,
		MaxResponseHeaderBytes: 1 << 20, // 1 MiB
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
	if opts.NoRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client
}
