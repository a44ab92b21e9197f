// Package webprobe fetches pages from the appliance's web server.
package webprobe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"k8s.io/klog/v2"
)

// MaxBodySize caps how much of a response body is kept.
const MaxBodySize = 1 << 20

type Client interface {
	// Get fetches url. A non-empty host overrides the Host header.
	Get(ctx context.Context, url, host string) (*Response, error)
}

type Response struct {
	StatusCode int
	Body       []byte
}

type client struct {
	httpClient *http.Client
}

// NewClient returns a Client whose requests give up after timeout. Redirects
// are not followed: the checks look at what the appliance itself serves.
func NewClient(timeout time.Duration) Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &client{httpClient: httpClient}
}

func (c *client) Get(ctx context.Context, url, host string) (*Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	if host != "" {
		request.Host = host
	}

	result, err := c.httpClient.Do(request)
	if err != nil {
		klog.V(4).InfoS("HTTP request failed", "url", url, "err", err)
		return nil, err
	}
	defer result.Body.Close()

	body, err := io.ReadAll(io.LimitReader(result.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}
	klog.V(5).InfoS("HTTP response", "url", url, "status", result.StatusCode, "bytes", len(body))

	return &Response{StatusCode: result.StatusCode, Body: body}, nil
}
