package cluster

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
)

// NodeReadinessCheck checks that enough of the cluster's nodes are Ready
type NodeReadinessCheck struct {
	healthcheck.BaseCheck
	deps      common.Dependencies
	threshold float64
}

// NewNodeReadinessCheck creates a new node readiness check
func NewNodeReadinessCheck(deps common.Dependencies) *NodeReadinessCheck {
	threshold := deps.Settings.Nodes.ReadyRatioThreshold
	return &NodeReadinessCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"node-readiness",
			"Node Readiness",
			fmt.Sprintf("Checks if Ready nodes are more than %.0f percent of all nodes", threshold*100),
			types.CategoryCluster,
		),
		deps:      deps,
		threshold: threshold,
	}
}

// Enabled reports whether the probe is switched on in the settings
func (c *NodeReadinessCheck) Enabled() bool {
	return c.deps.Settings.Nodes.Enabled
}

// Run executes the probe
func (c *NodeReadinessCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())
	log.Info(c.Description())

	nodes, err := c.deps.Clients.Kube.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to retrieve nodes", err)
	}

	total := len(nodes.Items)
	if total == 0 {
		result := healthcheck.NewResult(c.ID(), types.StatusCritical, "No nodes found in the cluster")
		result.AddMetadata("total", "0")
		return result, nil
	}

	var notReady []string
	for _, node := range nodes.Items {
		if !isNodeReady(node) {
			notReady = append(notReady, node.Name)
		}
	}

	ready := total - len(notReady)
	ratio := float64(ready) / float64(total)

	var detail strings.Builder
	detail.WriteString(fmt.Sprintf("Ready nodes: %d/%d (%.2f)\n", ready, total, ratio))
	if len(notReady) > 0 {
		detail.WriteString("\nNot ready nodes:\n")
		for _, name := range notReady {
			detail.WriteString(fmt.Sprintf("- %s\n", name))
		}
	}

	var result healthcheck.Result
	if ratio > c.threshold {
		log.Info("Node check success")
		result = healthcheck.NewResult(c.ID(), types.StatusOK,
			fmt.Sprintf("%d of %d nodes are ready", ready, total))
		if len(notReady) > 0 {
			result.Status = types.StatusWarning
			result.AddRecommendation(fmt.Sprintf("Investigate not ready nodes: %s", strings.Join(notReady, ", ")))
		}
	} else {
		result = healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("Only %d of %d nodes are ready (ratio %.2f, threshold %.2f)", ready, total, ratio, c.threshold))
		result.AddRecommendation("Check node logs using 'oc adm node-logs <node-name>'")
		result.AddRecommendation("Check node diagnostics using 'oc debug node/<node-name>'")
	}

	result.AddMetadata("ready", strconv.Itoa(ready))
	result.AddMetadata("total", strconv.Itoa(total))
	result.AddMetadata("ratio", strconv.FormatFloat(ratio, 'f', 4, 64))

	return result.WithDetail(detail.String()), nil
}

func isNodeReady(node corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}
