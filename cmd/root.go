/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2023-03-06
Modified: 2026-10-15

This application runs a fixed set of probes against an OpenShift cluster and
turns them into a single pass/fail signal for an external test harness:

- Node readiness and API server readiness
- Console reachability and image registry health through the routing layer
- Trident storage backend state and persistent volume mounts
- Kyverno admission controller liveness via a scratch ConfigMap

The exit code is 0 when every enabled probe passed and 1 otherwise.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayaseen/cluster-probes/pkg/checks"
	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
	"github.com/ayaseen/cluster-probes/pkg/utils"
)

// errProbesFailed is returned when the run completed but not every probe passed
var errProbesFailed = errors.New("one or more probes failed")

var (
	v          = viper.New()
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cluster-probes",
	Short: "Runs custom health probes against an OpenShift cluster",
	Long: `This application runs custom health probes against an OpenShift cluster.
Every probe checks one subsystem; the run passes only when all enabled probes pass.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		return readConfig(v, configFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(v)
		if err != nil {
			return err
		}

		log, err := utils.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, log)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errProbesFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configFile, "config", "", "Config file (default ./cluster-probes.yaml)")
	flags.String("kubeconfig", "", "Path to the kubeconfig file (default in-cluster, $KUBECONFIG, ~/.kube/config)")
	flags.String("api-url", "", "Cluster API URL (default taken from the kubeconfig or 'kubectl cluster-info')")
	flags.StringSlice("probe", []string{}, "Run only these probes (comma-separated IDs)")
	flags.StringSlice("skip", []string{}, "Skip these probes (comma-separated IDs)")
	flags.StringSlice("category", []string{}, "Run only probes in these categories (comma-separated)")
	flags.Bool("parallel", false, "Run probes in parallel")
	flags.Int("timeout", 120, "Timeout for each probe in seconds (0 for no timeout)")
	flags.Bool("fail-fast", false, "Stop at the first failed probe")
	flags.Bool("no-progress", false, "Disable progress bar")
	flags.Bool("verbose", false, "Print each result as it completes")
	flags.String("format", string(types.FormatNone), "Report format (summary, json, yaml, none)")
	flags.String("output-dir", "resources", "Directory where reports will be saved")
	flags.String("archive-password", "", "Zip the report with this password")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	flags.String("pushgateway-url", "", "Push Prometheus metrics to this Pushgateway")
	flags.String("push-job", "cluster-probes", "Pushgateway job name")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.Duration("http-timeout", 10*time.Second, "Timeout for probe HTTP requests")
	flags.Bool("verify-tls", false, "Verify TLS certificates of probed endpoints")
}

// run executes one probe run and returns errProbesFailed when the AND is false
func run(ctx context.Context, cfg runConfig, log *logrus.Entry) error {
	restConfig, err := utils.GetClusterConfig(cfg.Kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to get cluster config: %w", err)
	}

	clients, err := utils.NewClients(restConfig)
	if err != nil {
		return err
	}

	commands := utils.ExecRunner{}
	if cfg.Kubeconfig != "" {
		commands.Env = []string{"KUBECONFIG=" + cfg.Kubeconfig}
	}
	if !utils.IsCommandAvailable("oc") {
		log.Warn("oc not found on PATH; the console fallback and the pv-mount probe need it")
	}

	apiURL, err := utils.ResolveAPIServerURL(ctx, cfg.APIURL, restConfig, commands)
	if err != nil {
		log.WithError(err).Warn("could not determine the cluster API URL")
	}

	httpClient, err := utils.NewProbeHTTPClient(cfg.HTTPTimeout, cfg.VerifyTLS)
	if err != nil {
		return err
	}

	deps := common.Dependencies{
		Clients:      clients,
		Commands:     commands,
		HTTP:         httpClient,
		Log:          log,
		APIServerURL: apiURL,
		Settings:     cfg.Settings,
	}

	selected, err := checks.Select(checks.GetAllChecks(deps), cfg.Probes, cfg.Skip)
	if err != nil {
		return err
	}

	runner := healthcheck.NewRunner(healthcheck.Config{
		CategoryFilter:  cfg.categoryFilter(),
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		Parallel:        cfg.Parallel,
		SkipProgressBar: cfg.NoProgress,
		VerboseOutput:   cfg.Verbose,
		FailFast:        cfg.FailFast,
	}, log)
	runner.AddChecks(selected)

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("error running probes: %w", err)
	}

	if err := runner.Errors(); err != nil {
		log.Debugf("probe errors: %v", err)
	}

	if err := writeOutputs(cfg, runner, apiURL, log); err != nil {
		log.WithError(err).Warn("failed to write outputs")
	}

	printSummary(os.Stdout, runner)

	if !runner.Passed() {
		return errProbesFailed
	}
	return nil
}

// writeOutputs writes the report and metrics. Failures here never change the
// probe verdict.
func writeOutputs(cfg runConfig, runner *healthcheck.Runner, apiURL string, log *logrus.Entry) error {
	var errs *multierror.Error

	if types.ReportFormat(cfg.Format) != types.FormatNone {
		reporter := healthcheck.NewReporter(healthcheck.ReportConfig{
			Format:           types.ReportFormat(cfg.Format),
			OutputDir:        cfg.OutputDir,
			Filename:         "cluster-probes-report",
			IncludeTimestamp: true,
			Title:            "Cluster Probe Report",
		}, runner)
		reporter.SetAPIServerURL(apiURL)

		reportPath, err := reporter.Generate()
		if err != nil {
			errs = multierror.Append(errs, err)
		} else if cfg.ArchivePassword != "" {
			zipPath, err := utils.ArchiveReport(reportPath, cfg.ArchivePassword)
			if err != nil {
				errs = multierror.Append(errs, err)
			} else {
				log.Infof("Compressed report generated at: %s", zipPath)
			}
		} else {
			log.Infof("Report generated at: %s", reportPath)
		}
	}

	if cfg.MetricsFile != "" || cfg.PushgatewayURL != "" {
		metrics := healthcheck.NewMetrics()
		metrics.Observe(runner)

		if cfg.MetricsFile != "" {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if cfg.PushgatewayURL != "" {
			if err := metrics.Push(cfg.PushgatewayURL, cfg.PushJob); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	return errs.ErrorOrNil()
}
