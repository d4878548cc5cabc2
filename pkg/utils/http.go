package utils

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/common/config"
)

const probeClientName = "cluster-probes"

// maxProbeBody bounds how much of a response body a probe reads
const maxProbeBody = 1 << 20

// NewProbeHTTPClient returns the unauthenticated client used for endpoint
// probes. Cluster endpoints usually carry the cluster's own CA, so TLS
// verification is off unless verify is set.
func NewProbeHTTPClient(timeout time.Duration, verify bool) (*http.Client, error) {
	cfg := config.HTTPClientConfig{
		TLSConfig: config.TLSConfig{
			InsecureSkipVerify: !verify,
		},
		FollowRedirects: true,
		EnableHTTP2:     true,
	}

	client, err := config.NewClientFromConfig(cfg, probeClientName)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe HTTP client: %w", err)
	}
	client.Timeout = timeout

	return client, nil
}

// ProbeResponse is the part of an HTTP response a probe looks at
type ProbeResponse struct {
	StatusCode int
	Body       string
}

// HTTPGet issues a GET and returns the status code and (bounded) body
func HTTPGet(req *http.Request, client *http.Client) (ProbeResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return ProbeResponse{}, fmt.Errorf("GET %s failed: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return ProbeResponse{StatusCode: resp.StatusCode}, fmt.Errorf("failed to read response body from %s: %w", req.URL, err)
	}

	return ProbeResponse{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
