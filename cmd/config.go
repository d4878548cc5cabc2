package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/types"
)

const (
	envPrefix         = "CLUSTER_PROBES"
	defaultConfigName = "cluster-probes"
)

// runConfig is the resolved configuration of one run
type runConfig struct {
	Kubeconfig      string        `mapstructure:"kubeconfig"`
	APIURL          string        `mapstructure:"api-url"`
	Probes          []string      `mapstructure:"probe"`
	Skip            []string      `mapstructure:"skip"`
	Categories      []string      `mapstructure:"category"`
	Parallel        bool          `mapstructure:"parallel"`
	Timeout         int           `mapstructure:"timeout"`
	FailFast        bool          `mapstructure:"fail-fast"`
	NoProgress      bool          `mapstructure:"no-progress"`
	Verbose         bool          `mapstructure:"verbose"`
	Format          string        `mapstructure:"format"`
	OutputDir       string        `mapstructure:"output-dir"`
	ArchivePassword string        `mapstructure:"archive-password"`
	MetricsFile     string        `mapstructure:"metrics-file"`
	PushgatewayURL  string        `mapstructure:"pushgateway-url"`
	PushJob         string        `mapstructure:"push-job"`
	LogLevel        string        `mapstructure:"log-level"`
	LogFormat       string        `mapstructure:"log-format"`
	HTTPTimeout     time.Duration `mapstructure:"http-timeout"`
	VerifyTLS       bool          `mapstructure:"verify-tls"`

	Settings common.Settings `mapstructure:"probes"`
}

// setProbeDefaults registers every probe setting so that config files and
// environment variables can override them key by key
func setProbeDefaults(v *viper.Viper) {
	d := common.DefaultSettings()

	v.SetDefault("probes.nodes.enabled", d.Nodes.Enabled)
	v.SetDefault("probes.nodes.ready-ratio-threshold", d.Nodes.ReadyRatioThreshold)

	v.SetDefault("probes.apiserver-readyz.enabled", d.APIServer.Enabled)
	v.SetDefault("probes.console.enabled", d.Console.Enabled)

	v.SetDefault("probes.image-registry.enabled", d.Registry.Enabled)

	v.SetDefault("probes.image-registry.namespace", d.Registry.Namespace)
	v.SetDefault("probes.image-registry.route", d.Registry.Route)

	v.SetDefault("probes.trident.enabled", d.Trident.Enabled)
	v.SetDefault("probes.trident.namespace", d.Trident.Namespace)

	v.SetDefault("probes.pv-mount.enabled", d.PVMount.Enabled)
	v.SetDefault("probes.pv-mount.namespace", d.PVMount.Namespace)
	v.SetDefault("probes.pv-mount.selector", d.PVMount.Selector)
	for label, path := range d.PVMount.Mounts {
		v.SetDefault("probes.pv-mount.mounts."+label, path)
	}
	v.SetDefault("probes.pv-mount.touch-timeout", d.PVMount.TouchTimeout)

	v.SetDefault("probes.kyverno.enabled", d.Kyverno.Enabled)
	v.SetDefault("probes.kyverno.namespace", d.Kyverno.Namespace)
	v.SetDefault("probes.kyverno.selector", d.Kyverno.Selector)
	v.SetDefault("probes.kyverno.blackbox", d.Kyverno.Blackbox)
	v.SetDefault("probes.kyverno.scratch-namespace", d.Kyverno.ScratchNamespace)
	v.SetDefault("probes.kyverno.configmap-name", d.Kyverno.ConfigMapName)
	v.SetDefault("probes.kyverno.step-delay", d.Kyverno.StepDelay)
}

// readConfig wires the environment and the optional config file into v
func readConfig(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setProbeDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/cluster-probes")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// loadConfig resolves and validates the run configuration
func loadConfig(v *viper.Viper) (runConfig, error) {
	var cfg runConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Probes = splitList(cfg.Probes)
	cfg.Skip = splitList(cfg.Skip)
	cfg.Categories = splitList(cfg.Categories)
	cfg.Settings.PVMount.Mounts = mergeMounts(common.DefaultSettings().PVMount.Mounts, cfg.Settings.PVMount.Mounts)

	return cfg, validateConfig(cfg)
}

// mergeMounts overlays configured mount paths on the defaults. A file that
// names only one label must not drop the other.
func mergeMounts(defaults, configured map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(configured))
	for label, path := range defaults {
		merged[label] = path
	}
	for label, path := range configured {
		merged[label] = path
	}
	return merged
}

// validateConfig validates the resolved configuration
func validateConfig(cfg runConfig) error {
	validFormats := map[string]bool{
		string(types.FormatSummary): true,
		string(types.FormatJSON):    true,
		string(types.FormatYAML):    true,
		string(types.FormatNone):    true,
	}
	if !validFormats[cfg.Format] {
		return fmt.Errorf("invalid report format: %s (must be one of: summary, json, yaml, none)", cfg.Format)
	}

	if cfg.Format != string(types.FormatNone) && cfg.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if cfg.Parallel && cfg.FailFast {
		return fmt.Errorf("fail-fast cannot be combined with parallel")
	}

	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be greater than or equal to 0")
	}

	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http-timeout must be greater than 0")
	}

	for _, category := range cfg.Categories {
		if !isValidCategory(category) {
			return fmt.Errorf("invalid category: %s (must be one of: %s)", category, categoryNames())
		}
	}

	threshold := cfg.Settings.Nodes.ReadyRatioThreshold
	if threshold < 0 || threshold >= 1 {
		return fmt.Errorf("probes.nodes.ready-ratio-threshold must be in [0, 1), got %v", threshold)
	}

	for label, path := range cfg.Settings.PVMount.Mounts {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("probes.pv-mount.mounts.%s must not be empty", label)
		}
	}

	if cfg.Settings.Kyverno.StepDelay < 0 {
		return fmt.Errorf("probes.kyverno.step-delay must not be negative")
	}

	if cfg.PushgatewayURL != "" && cfg.PushJob == "" {
		return fmt.Errorf("push-job cannot be empty when pushgateway-url is set")
	}

	return nil
}

func (cfg runConfig) categoryFilter() []types.Category {
	var categories []types.Category
	for _, cat := range cfg.Categories {
		categories = append(categories, types.Category(cat))
	}
	return categories
}

func isValidCategory(category string) bool {
	for _, c := range types.AllCategories {
		if string(c) == category {
			return true
		}
	}
	return false
}

func categoryNames() string {
	names := make([]string, 0, len(types.AllCategories))
	for _, c := range types.AllCategories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// splitList accepts both repeated values and comma separated env values
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
