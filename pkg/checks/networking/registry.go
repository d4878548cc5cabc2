package networking

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
	"github.com/ayaseen/cluster-probes/pkg/utils"
)

// ImageRegistryCheck checks the image registry API through its public route,
// which also exercises the routing layer
type ImageRegistryCheck struct {
	healthcheck.BaseCheck
	deps common.Dependencies
}

// NewImageRegistryCheck creates a new image registry check
func NewImageRegistryCheck(deps common.Dependencies) *ImageRegistryCheck {
	return &ImageRegistryCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"image-registry",
			"Image Registry and Routing",
			"Checks the image registry API and the routing layer in front of it",
			types.CategoryNetworking,
		),
		deps: deps,
	}
}

// Enabled reports whether the probe is switched on in the settings
func (c *ImageRegistryCheck) Enabled() bool {
	return c.deps.Settings.Registry.Enabled
}

// Run executes the probe
func (c *ImageRegistryCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())
	settings := c.deps.Settings.Registry

	route, err := c.deps.Clients.Route.RouteV1().Routes(settings.Namespace).Get(ctx, settings.Route, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		result := healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("Route %s/%s not found", settings.Namespace, settings.Route))
		result.AddRecommendation("Expose the registry by setting spec.defaultRoute on configs.imageregistry.operator.openshift.io/cluster")
		return result, nil
	}
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to retrieve image registry route", err)
	}

	host := strings.TrimSpace(route.Spec.Host)
	if host == "" {
		return healthcheck.Fail(c.ID(), fmt.Sprintf("Route %s/%s has no host", settings.Namespace, settings.Route), nil)
	}

	url := "https://" + host + "/healthz"
	log.Infof("Detected Image Registry API: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to build registry request", err)
	}

	resp, err := utils.HTTPGet(req, c.deps.HTTP)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Image registry is unreachable", err)
	}

	var result healthcheck.Result
	if resp.StatusCode == http.StatusOK {
		log.Info("Image Registry success")
		result = healthcheck.NewResult(c.ID(), types.StatusOK, "Image registry is healthy")
	} else {
		result = healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("Image registry returned HTTP %d", resp.StatusCode))
		result.AddRecommendation("Check the registry pods with 'oc -n openshift-image-registry get pods'")
		result.AddRecommendation("Check the ingress controller with 'oc -n openshift-ingress get pods'")
	}

	result.AddMetadata("url", url)
	result.AddMetadata("status_code", strconv.Itoa(resp.StatusCode))

	return result, nil
}
