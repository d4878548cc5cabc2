package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/types"
	"github.com/ayaseen/cluster-probes/pkg/utils"
)

func testDeps(objects ...runtime.Object) common.Dependencies {
	logger, _ := test.NewNullLogger()
	return common.Dependencies{
		Clients:  &utils.Clients{Kube: fake.NewSimpleClientset(objects...)},
		Log:      logrus.NewEntry(logger),
		Settings: common.DefaultSettings(),
	}
}

func nodes(ready, total int) []runtime.Object {
	var objects []runtime.Object
	for i := 0; i < total; i++ {
		status := corev1.ConditionTrue
		if i >= ready {
			status = corev1.ConditionFalse
		}
		objects = append(objects, &corev1.Node{
			ObjectMeta: metav1.ObjectMeta{Name: fmt.Sprintf("worker-%03d", i)},
			Status: corev1.NodeStatus{
				Conditions: []corev1.NodeCondition{
					{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
					{Type: corev1.NodeReady, Status: status},
				},
			},
		})
	}
	return objects
}

func TestNodeReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		ready      int
		total      int
		wantStatus types.Status
	}{
		{name: "all ready", ready: 5, total: 5, wantStatus: types.StatusOK},
		{name: "above threshold", ready: 81, total: 100, wantStatus: types.StatusWarning},
		{name: "exactly at threshold", ready: 80, total: 100, wantStatus: types.StatusCritical},
		{name: "below threshold", ready: 79, total: 100, wantStatus: types.StatusCritical},
		{name: "no nodes", ready: 0, total: 0, wantStatus: types.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewNodeReadinessCheck(testDeps(nodes(tt.ready, tt.total)...))

			result, err := check.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, fmt.Sprint(tt.total), result.Metadata["total"])
		})
	}
}

func TestNodeReadinessCheckNodeWithoutReadyCondition(t *testing.T) {
	node := &corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "fresh"}}
	check := NewNodeReadinessCheck(testDeps(node))

	result, err := check.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusCritical, result.Status)
	assert.Equal(t, "0", result.Metadata["ready"])
	assert.Contains(t, result.Detail, "- fresh")
}

func TestNodeReadinessCheckCustomThreshold(t *testing.T) {
	deps := testDeps(nodes(3, 4)...)
	deps.Settings.Nodes.ReadyRatioThreshold = 0.5

	result, err := NewNodeReadinessCheck(deps).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Equal(t, "0.7500", result.Metadata["ratio"])
}
