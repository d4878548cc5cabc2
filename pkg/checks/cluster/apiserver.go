package cluster

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
	"github.com/ayaseen/cluster-probes/pkg/utils"
)

// APIServerReadyzCheck checks the API server's /readyz endpoint
type APIServerReadyzCheck struct {
	healthcheck.BaseCheck
	deps common.Dependencies
}

// NewAPIServerReadyzCheck creates a new readyz check
func NewAPIServerReadyzCheck(deps common.Dependencies) *APIServerReadyzCheck {
	return &APIServerReadyzCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"apiserver-readyz",
			"API Server Readyz",
			"Checks the cluster readyz endpoint",
			types.CategoryCluster,
		),
		deps: deps,
	}
}

// ReadyzURL returns the readyz endpoint for an API server URL
func ReadyzURL(apiServerURL string) string {
	return strings.TrimRight(strings.TrimSpace(apiServerURL), "/") + "/readyz"
}

// Enabled reports whether the probe is switched on in the settings
func (c *APIServerReadyzCheck) Enabled() bool {
	return c.deps.Settings.APIServer.Enabled
}

// Run executes the probe
func (c *APIServerReadyzCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())

	if strings.TrimSpace(c.deps.APIServerURL) == "" {
		return healthcheck.Fail(c.ID(), "Cluster API URL is not known", nil)
	}

	url := ReadyzURL(c.deps.APIServerURL)
	log.Infof("Check cluster readyz endpoint %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to build readyz request", err)
	}

	resp, err := utils.HTTPGet(req, c.deps.HTTP)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Readyz endpoint is unreachable", err)
	}

	var result healthcheck.Result
	if resp.StatusCode == http.StatusOK && strings.Contains(resp.Body, "ok") {
		log.Info("Cluster readyz success")
		result = healthcheck.NewResult(c.ID(), types.StatusOK, "API server reports ready")
	} else {
		result = healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("API server is not ready (HTTP %d)", resp.StatusCode))
		result.AddRecommendation("Inspect failing readyz checks with 'oc get --raw /readyz?verbose'")
	}

	result.AddMetadata("url", url)
	result.AddMetadata("status_code", strconv.Itoa(resp.StatusCode))

	return result.WithDetail(resp.Body), nil
}
