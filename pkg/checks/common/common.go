// Package common holds the settings and injected dependencies shared by all
// cluster probes.
package common

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayaseen/cluster-probes/pkg/utils"
)

// NodeSettings configures the node readiness probe
type NodeSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// ReadyRatioThreshold must be strictly exceeded by ready/total
	ReadyRatioThreshold float64 `mapstructure:"ready-ratio-threshold"`
}

// APIServerSettings configures the API server readyz probe
type APIServerSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// ConsoleSettings configures the console probe
type ConsoleSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// RegistrySettings configures the image registry probe
type RegistrySettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Route     string `mapstructure:"route"`
}

// TridentSettings configures the storage backend probe
type TridentSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// PVMountSettings configures the persistent volume mount probe
type PVMountSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Selector  string `mapstructure:"selector"`
	// Mounts maps a mount label (file, block) to its path in the pod
	Mounts map[string]string `mapstructure:"mounts"`
	// TouchTimeout is passed to `timeout --preserve-status` inside the pod
	TouchTimeout time.Duration `mapstructure:"touch-timeout"`
}

// KyvernoSettings configures the admission controller probe
type KyvernoSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Selector  string `mapstructure:"selector"`
	// Blackbox enables the create/patch/delete ConfigMap probe
	Blackbox         bool          `mapstructure:"blackbox"`
	ScratchNamespace string        `mapstructure:"scratch-namespace"`
	ConfigMapName    string        `mapstructure:"configmap-name"`
	StepDelay        time.Duration `mapstructure:"step-delay"`
}

// Settings holds the tunables of every probe
type Settings struct {
	Nodes     NodeSettings      `mapstructure:"nodes"`
	APIServer APIServerSettings `mapstructure:"apiserver-readyz"`
	Console   ConsoleSettings   `mapstructure:"console"`
	Registry  RegistrySettings  `mapstructure:"image-registry"`
	Trident   TridentSettings   `mapstructure:"trident"`
	PVMount   PVMountSettings   `mapstructure:"pv-mount"`
	Kyverno   KyvernoSettings   `mapstructure:"kyverno"`
}

// DefaultSettings returns the settings used on the reference cluster
func DefaultSettings() Settings {
	return Settings{
		Nodes: NodeSettings{
			Enabled:             true,
			ReadyRatioThreshold: 0.8,
		},
		APIServer: APIServerSettings{
			Enabled: true,
		},
		Console: ConsoleSettings{
			Enabled: true,
		},
		Registry: RegistrySettings{
			Enabled:   true,
			Namespace: "openshift-image-registry",
			Route:     "public-registry",
		},
		Trident: TridentSettings{
			Enabled:   true,
			Namespace: "openshift-bcgov-trident",
		},
		PVMount: PVMountSettings{
			Enabled:   true,
			Namespace: "openshift-bcgov-cerberus",
			Selector:  "app=deployment-to-test-storage-connection",
			Mounts: map[string]string{
				"file":  "/mnt/file",
				"block": "/mnt/block",
			},
			TouchTimeout: 3 * time.Second,
		},
		Kyverno: KyvernoSettings{
			Enabled:          true,
			Namespace:        "kyverno",
			Selector:         "app.kubernetes.io/component=admission-controller",
			Blackbox:         true,
			ScratchNamespace: "openshift-bcgov-cerberus",
			ConfigMapName:    "kyverno-liveness-probe",
			StepDelay:        time.Second,
		},
	}
}

// Dependencies is what a probe needs from the outside world
type Dependencies struct {
	Clients      *utils.Clients
	Commands     utils.CommandRunner
	HTTP         *http.Client
	Log          *logrus.Entry
	APIServerURL string
	Settings     Settings
}

// Logger returns the dependency logger scoped to a probe
func (d Dependencies) Logger(probe string) *logrus.Entry {
	log := d.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return log.WithField("probe", probe)
}
