package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	k8stypes "k8s.io/apimachinery/pkg/types"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
)

const (
	probeLabel      = "app.kubernetes.io/managed-by"
	probeLabelValue = "cluster-probes"
)

// KyvernoCheck checks that the Kyverno admission controller is running and
// admitting requests. With the blackbox step enabled it creates, patches and
// deletes a scratch ConfigMap; a hung or failing webhook makes one of those
// calls fail.
type KyvernoCheck struct {
	healthcheck.BaseCheck
	deps common.Dependencies
	now  func() time.Time
}

// NewKyvernoCheck creates a new Kyverno check
func NewKyvernoCheck(deps common.Dependencies) *KyvernoCheck {
	return &KyvernoCheck{
		BaseCheck: healthcheck.NewBaseCheck(
			"kyverno",
			"Kyverno Admission Controller",
			"Checks if the Kyverno pods are okay and admitting requests",
			types.CategoryAdmission,
		),
		deps: deps,
		now:  time.Now,
	}
}

// Enabled reports whether the probe is switched on in the settings
func (c *KyvernoCheck) Enabled() bool {
	return c.deps.Settings.Kyverno.Enabled
}

// Run executes the probe
func (c *KyvernoCheck) Run(ctx context.Context) (healthcheck.Result, error) {
	log := c.deps.Logger(c.ID())
	log.Info(c.Description())

	settings := c.deps.Settings.Kyverno

	running, err := c.runningPods(ctx)
	if err != nil {
		return healthcheck.Fail(c.ID(), "Failed to list Kyverno admission controller pods", err)
	}

	if running == 0 {
		result := healthcheck.NewResult(c.ID(), types.StatusCritical,
			fmt.Sprintf("No running Kyverno admission controller pods in namespace %s", settings.Namespace))
		result.AddRecommendation(fmt.Sprintf("Check the pods with 'oc -n %s get pods -l %s'", settings.Namespace, settings.Selector))
		result.AddMetadata("running_pods", "0")
		return result, nil
	}
	log.Infof("Kyverno check success with %d pod(s) running.", running)

	if !settings.Blackbox {
		result := healthcheck.NewResult(c.ID(), types.StatusOK,
			fmt.Sprintf("%d Kyverno admission controller pod(s) running", running))
		result.AddMetadata("running_pods", strconv.Itoa(running))
		return result, nil
	}

	if step, err := c.scratchConfigMapProbe(ctx); err != nil {
		result, wrapped := healthcheck.Fail(c.ID(),
			fmt.Sprintf("Admission probe failed to %s ConfigMap %s/%s", step, settings.ScratchNamespace, settings.ConfigMapName), err)
		result.AddRecommendation(fmt.Sprintf("Check the Kyverno webhook logs with 'oc -n %s logs -l %s'", settings.Namespace, settings.Selector))
		result.AddRecommendation("Check the webhook configurations with 'oc get validatingwebhookconfigurations,mutatingwebhookconfigurations'")
		result.AddMetadata("running_pods", strconv.Itoa(running))
		result.AddMetadata("failed_step", step)
		return result, wrapped
	}

	log.Info("Kyverno admission probe success")
	result := healthcheck.NewResult(c.ID(), types.StatusOK,
		fmt.Sprintf("%d Kyverno admission controller pod(s) running and admitting requests", running))
	result.AddMetadata("running_pods", strconv.Itoa(running))
	return result, nil
}

func (c *KyvernoCheck) runningPods(ctx context.Context) (int, error) {
	settings := c.deps.Settings.Kyverno

	pods, err := c.deps.Clients.Kube.CoreV1().Pods(settings.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: settings.Selector,
		FieldSelector: fields.OneTermEqualSelector("status.phase", string(corev1.PodRunning)).String(),
	})
	if err != nil {
		return 0, err
	}

	running := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}
	return running, nil
}

// scratchConfigMapProbe runs create, patch and delete against the scratch
// ConfigMap and returns the name of the step that failed
func (c *KyvernoCheck) scratchConfigMapProbe(ctx context.Context) (string, error) {
	settings := c.deps.Settings.Kyverno
	log := c.deps.Logger(c.ID())
	configMaps := c.deps.Clients.Kube.CoreV1().ConfigMaps(settings.ScratchNamespace)

	// leftover from an interrupted run
	err := configMaps.Delete(ctx, settings.ConfigMapName, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return "clean up", err
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      settings.ConfigMapName,
			Namespace: settings.ScratchNamespace,
			Labels: map[string]string{
				probeLabel: probeLabelValue,
			},
		},
		Data: map[string]string{
			"created-at": c.now().UTC().Format(time.RFC3339),
		},
	}
	if _, err := configMaps.Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		return "create", err
	}
	log.Debugf("created ConfigMap %s/%s", settings.ScratchNamespace, settings.ConfigMapName)

	deleted := false
	defer func() {
		if deleted {
			return
		}
		// the run context may already be done
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := configMaps.Delete(cleanupCtx, settings.ConfigMapName, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			log.Warnf("failed to clean up ConfigMap %s/%s: %v", settings.ScratchNamespace, settings.ConfigMapName, err)
		}
	}()

	if err := sleep(ctx, settings.StepDelay); err != nil {
		return "patch", err
	}

	patch, err := json.Marshal(map[string]interface{}{
		"data": map[string]string{
			"probed-at": c.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "patch", err
	}
	if _, err := configMaps.Patch(ctx, settings.ConfigMapName, k8stypes.MergePatchType, patch, metav1.PatchOptions{}); err != nil {
		return "patch", err
	}
	log.Debugf("patched ConfigMap %s/%s", settings.ScratchNamespace, settings.ConfigMapName)

	if err := sleep(ctx, settings.StepDelay); err != nil {
		return "delete", err
	}

	if err := configMaps.Delete(ctx, settings.ConfigMapName, metav1.DeleteOptions{}); err != nil {
		return "delete", err
	}
	deleted = true
	log.Debugf("deleted ConfigMap %s/%s", settings.ScratchNamespace, settings.ConfigMapName)

	return "", nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
