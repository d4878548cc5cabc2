package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"k8s.io/client-go/rest"
)

var (
	ansiEscape     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	clusterInfoURL = regexp.MustCompile(`(http|https)://[a-zA-Z0-9./?=_%:-]*`)
)

// ParseClusterInfoURL extracts the control plane URL from the first line of
// `kubectl cluster-info` output
func ParseClusterInfoURL(output string) (string, error) {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	firstLine = ansiEscape.ReplaceAllString(firstLine, "")

	url := clusterInfoURL.FindString(firstLine)
	if url == "" {
		return "", fmt.Errorf("no API server URL found in cluster-info output: %q", firstLine)
	}
	return strings.TrimRight(url, "/"), nil
}

// ResolveAPIServerURL returns the cluster API URL. An explicit override wins,
// then the host of the rest config, then `kubectl cluster-info`.
func ResolveAPIServerURL(ctx context.Context, override string, config *rest.Config, runner CommandRunner) (string, error) {
	if url := strings.TrimSpace(override); url != "" {
		return normalizeURL(url), nil
	}

	if config != nil && strings.TrimSpace(config.Host) != "" {
		return normalizeURL(config.Host), nil
	}

	if runner == nil {
		return "", fmt.Errorf("no API server URL configured and no command runner available")
	}

	out, err := runner.Run(ctx, "kubectl", "cluster-info")
	if err != nil {
		return "", fmt.Errorf("failed to run kubectl cluster-info: %w", err)
	}
	return ParseClusterInfoURL(out)
}

func normalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return strings.TrimRight(url, "/")
}
