package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
)

// TridentBackendGVR identifies the Trident backend custom resource
var TridentBackendGVR = schema.GroupVersionResource{
	Group:    "trident.netapp.io",
	Version:  "v1",
	Resource: "tridentbackends",
}

const backendOnline = "online"

// TridentBackendCheck checks that every Trident storage backend is online
type TridentBackendCheck struct {
	healthcheck.BaseCheck
	deps common.Dependencies
}

// NewTridentBackendCheck creates a new Trident backend check
func NewTridentBackendCheck(deps common.Dependencies) *TridentBackendCheck {
	return &TridentBackendCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"trident-backends",
			"Storage Backends",
			"Checks if the NetApp Trident storage backends are all available",
			types.CategoryStorage,
		),
		deps: deps,
	}
}

// Enabled reports whether the probe is switched on in the settings
func (c *TridentBackendCheck) Enabled() bool {
	return c.deps.Settings.Trident.Enabled
}

// Run executes the probe
func (c *TridentBackendCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())
	log.Info(c.Description())

	namespace := c.deps.Settings.Trident.Namespace
	list, err := c.deps.Clients.Dynamic.Resource(TridentBackendGVR).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to list TridentBackends", err)
	}

	if len(list.Items) == 0 {
		result := healthcheck.NewResult(c.ID(), types.StatusWarning,
			fmt.Sprintf("No TridentBackends found in namespace %s", namespace))
		result.AddRecommendation("Verify the Trident namespace setting and that backends are configured")
		result.AddMetadata("backends", "0")
		return result, nil
	}

	var detail strings.Builder
	var offline []string

	for _, item := range list.Items {
		state := backendState(item)
		log.Infof("-> TridentBackends %s: %s", item.GetName(), state)
		detail.WriteString(fmt.Sprintf("%s: %s\n", item.GetName(), state))

		if state != backendOnline {
			offline = append(offline, fmt.Sprintf("%s (%s)", item.GetName(), state))
		}
	}

	var result healthcheck.Result
	if len(offline) == 0 {
		log.Info("Storage success")
		result = healthcheck.NewResult(c.ID(), types.StatusOK,
			fmt.Sprintf("All %d storage backends are online", len(list.Items)))
	} else {
		result = healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("Storage backends not online: %s", strings.Join(offline, ", ")))
		result.AddRecommendation(fmt.Sprintf("Inspect the backends with 'oc -n %s get tridentbackends -o yaml'", namespace))
		result.AddRecommendation("Check connectivity from the Trident controller to the storage system")
	}

	result.AddMetadata("backends", strconv.Itoa(len(list.Items)))
	result.AddMetadata("offline", strconv.Itoa(len(offline)))

	return result.WithDetail(detail.String()), nil
}

func backendState(item unstructured.Unstructured) string {
	state, found, err := unstructured.NestedString(item.Object, "state")
	if err != nil || !found || state == "" {
		return "unknown"
	}
	return state
}
