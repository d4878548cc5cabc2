package networking

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
	"github.com/ayaseen/cluster-probes/pkg/utils"
)

// ConsoleCheck checks that the web console answers with HTTP 200
type ConsoleCheck struct {
	healthcheck.BaseCheck
	deps common.Dependencies
}

// NewConsoleCheck creates a new console check
func NewConsoleCheck(deps common.Dependencies) *ConsoleCheck {
	return &ConsoleCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"console",
			"Cluster Console",
			"Checks cluster console accessibility",
			types.CategoryNetworking,
		),
		deps: deps,
	}
}

// Enabled reports whether the probe is switched on in the settings
func (c *ConsoleCheck) Enabled() bool {
	return c.deps.Settings.Console.Enabled
}

// Run executes the probe
func (c *ConsoleCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())
	log.Info(c.Description())

	consoleURL, err := c.consoleURL(ctx)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to determine console URL", err)
	}
	log.Infof("Detected console URL: %s", consoleURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, consoleURL, nil)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to build console request", err)
	}

	resp, err := utils.HTTPGet(req, c.deps.HTTP)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Console is unreachable", err)
	}

	var result healthcheck.Result
	if resp.StatusCode == http.StatusOK {
		log.Info("Cluster console success")
		result = healthcheck.NewResult(c.ID(), types.StatusOK, "Console is reachable")
	} else {
		result = healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("Console returned HTTP %d", resp.StatusCode))
		result.AddRecommendation("Check the console operator with 'oc get co console'")
		result.AddRecommendation("Check the console pods with 'oc -n openshift-console get pods'")
	}

	result.AddMetadata("url", consoleURL)
	result.AddMetadata("status_code", strconv.Itoa(resp.StatusCode))

	return result, nil
}

// consoleURL reads the console URL from the cluster Console config and falls
// back to `oc whoami --show-console`
func (c *ConsoleCheck) consoleURL(ctx context.Context) (string, error) {
	var lookupErr error

	if c.deps.Clients != nil && c.deps.Clients.OpenShiftConfig != nil {
		console, err := c.deps.Clients.OpenShiftConfig.ConfigV1().Consoles().Get(ctx, "cluster", metav1.GetOptions{})
		if err == nil && strings.TrimSpace(console.Status.ConsoleURL) != "" {
			return strings.TrimSpace(console.Status.ConsoleURL), nil
		}
		lookupErr = err
	}

	if c.deps.Commands == nil {
		if lookupErr != nil {
			return "", lookupErr
		}
		return "", fmt.Errorf("console URL is not published in the cluster Console config")
	}

	out, err := c.deps.Commands.Run(ctx, "oc", "whoami", "--show-console")
	if err != nil {
		return "", fmt.Errorf("oc whoami --show-console: %w", err)
	}

	url := stripWhitespace(out)
	if url == "" {
		return "", fmt.Errorf("oc whoami --show-console returned no URL")
	}
	return url, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
