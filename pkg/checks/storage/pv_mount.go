package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
)

const mountSuccess = "successfully"

// PVMountCheck writes to the file and block volumes of a long-running test
// pod to verify that persistent volume connections work
type PVMountCheck struct {
	healthcheck.BaseCheck
	deps common.Dependencies
}

// NewPVMountCheck creates a new persistent volume mount check
func NewPVMountCheck(deps common.Dependencies) *PVMountCheck {
	return &PVMountCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"pv-mount",
			"Persistent Volume Mounts",
			"Checks if the PV connection is okay",
			types.CategoryStorage,
		),
		deps: deps,
	}
}

// Enabled reports whether the probe is switched on in the settings
func (c *PVMountCheck) Enabled() bool {
	return c.deps.Settings.PVMount.Enabled
}

// Run executes the probe
func (c *PVMountCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())
	log.Info(c.Description())

	settings := c.deps.Settings.PVMount
	if len(settings.Mounts) == 0 {
		return healthcheck.Fail(c.ID(), "No mount paths configured", nil)
	}
	if c.deps.Commands == nil {
		return healthcheck.Fail(c.ID(), "No command runner available for oc exec", nil)
	}

	pods, err := c.deps.Clients.Kube.CoreV1().Pods(settings.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: settings.Selector,
	})
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to list storage test pods", err)
	}

	pod, ok := pickPod(pods.Items)
	if !ok {
		result := healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("No pod matching %q in namespace %s", settings.Selector, settings.Namespace))
		result.AddRecommendation("Check that the storage connection test deployment is running")
		return result, nil
	}

	labels := make([]string, 0, len(settings.Mounts))
	for label := range settings.Mounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var failed []string
	var detail strings.Builder
	outcomes := make(map[string]string, len(labels))

	for _, label := range labels {
		outcome := c.touch(ctx, pod.Name, settings.Mounts[label])
		outcomes[label] = outcome
		detail.WriteString(fmt.Sprintf("%s (%s): %s\n", label, settings.Mounts[label], outcome))
		if outcome != mountSuccess {
			failed = append(failed, label)
		}
	}

	var result healthcheck.Result
	if len(failed) == 0 {
		log.Infof("All PV connections succeeded: %s", strings.Join(labels, ", "))
		result = healthcheck.NewResult(c.ID(), types.StatusOK,
			fmt.Sprintf("Volumes writable in pod %s: %s", pod.Name, strings.Join(labels, ", ")))
	} else {
		log.Warnf("PVC connection check failed: %s", strings.TrimSpace(detail.String()))
		result = healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("Volumes not writable in pod %s: %s", pod.Name, strings.Join(failed, ", ")))
		result.AddRecommendation(fmt.Sprintf("Describe the pod with 'oc -n %s describe pod %s'", settings.Namespace, pod.Name))
		result.AddRecommendation("Check the storage backends and the CSI node plugin on the pod's node")
	}

	result.AddMetadata("pod", pod.Name)
	for label, outcome := range outcomes {
		result.AddMetadata(label, outcome)
	}

	return result.WithDetail(detail.String()), nil
}

// touch creates a test file under mountPath in the pod and reports
// "successfully" or the failure
func (c *PVMountCheck) touch(ctx context.Context, pod, mountPath string) string {
	settings := c.deps.Settings.PVMount

	seconds := int(settings.TouchTimeout.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	_, err := c.deps.Commands.Run(ctx, "oc",
		"-n", settings.Namespace,
		"exec", pod,
		"--",
		"timeout", "--preserve-status", strconv.Itoa(seconds),
		"touch", path.Join(mountPath, "test"),
	)
	if err != nil {
		return err.Error()
	}
	return mountSuccess
}

// pickPod prefers a Running pod and falls back to the first one
func pickPod(pods []corev1.Pod) (corev1.Pod, bool) {
	if len(pods) == 0 {
		return corev1.Pod{}, false
	}
	for _, pod := range pods {
		if pod.Status.Phase == corev1.PodRunning && pod.DeletionTimestamp == nil {
			return pod, true
		}
	}
	return pods[0], true
}
