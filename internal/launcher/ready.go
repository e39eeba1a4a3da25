package launcher

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultHealthURL is Triton's readiness probe on its default HTTP port.
const DefaultHealthURL = "http://127.0.0.1:8000/v2/health/ready"

const (
	pollInterval = 500 * time.Millisecond
	probeTimeout = 1 * time.Second
)

// WaitReady polls url until it answers 2xx or ctx ends. The client may
// be nil; probes carry their own short timeout either way.
func WaitReady(ctx context.Context, client *http.Client, url string) error {
	if client == nil {
		client = &http.Client{}
	}
	if url == "" {
		url = DefaultHealthURL
	}
	for {
		if probe(ctx, client, url) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server not ready: %s: %w", url, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

func probe(ctx context.Context, client *http.Client, url string) bool {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
