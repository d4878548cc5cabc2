package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	configclient "github.com/openshift/client-go/config/clientset/versioned"
	routeclient "github.com/openshift/client-go/route/clientset/versioned"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// GetClusterConfig returns the Kubernetes client configuration. An explicit
// kubeconfig path wins; otherwise in-cluster config is tried, then $KUBECONFIG,
// then ~/.kube/config.
func GetClusterConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		config, err := rest.InClusterConfig()
		if err == nil {
			return config, nil
		}

		kubeconfig = os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	if !FileExists(kubeconfig) {
		return nil, fmt.Errorf("kubeconfig file not found at %s", kubeconfig)
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
	}

	return config, nil
}

// Clients bundles the API clients the probes talk to
type Clients struct {
	Config          *rest.Config
	Kube            kubernetes.Interface
	Dynamic         dynamic.Interface
	OpenShiftConfig configclient.Interface
	Route           routeclient.Interface
}

// NewClients creates every client from one rest config
func NewClients(config *rest.Config) (*Clients, error) {
	kube, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}

	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	osConfig, err := configclient.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenShift config client: %w", err)
	}

	route, err := routeclient.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenShift route client: %w", err)
	}

	return &Clients{
		Config:          config,
		Kube:            kube,
		Dynamic:         dyn,
		OpenShiftConfig: osConfig,
		Route:           route,
	}, nil
}

// CommandError represents a command execution error with detailed information
type CommandError struct {
	Command string
	Args    []string
	Err     error
	Stderr  string
}

// Error returns the formatted error message
func (ce *CommandError) Error() string {
	return fmt.Sprintf("command '%s %s' failed: %v\nstderr: %s",
		ce.Command, strings.Join(ce.Args, " "), ce.Err, ce.Stderr)
}

// Unwrap returns the underlying execution error
func (ce *CommandError) Unwrap() error {
	return ce.Err
}

// CommandRunner runs CLI tools such as oc and kubectl
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands on the local host
type ExecRunner struct {
	// Env is appended to the process environment, e.g. KUBECONFIG=...
	Env []string
}

// Run executes a command and returns its stdout
func (e ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return "", fmt.Errorf("command %s timed out: %w", name, ctxErr)
	}
	if err != nil {
		return "", &CommandError{
			Command: name,
			Args:    args,
			Err:     err,
			Stderr:  stderr.String(),
		}
	}

	return stdout.String(), nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// IsCommandAvailable checks if a command is on PATH
func IsCommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
