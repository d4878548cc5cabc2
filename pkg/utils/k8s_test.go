package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if !IsCommandAvailable("sh") {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	out, err := ExecRunner{Env: []string{"PROBE_GREETING=hello"}}.Run(ctx, "sh", "-c", "echo $PROBE_GREETING")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, err = ExecRunner{}.Run(ctx, "sh", "-c", "echo denied >&2; exit 3")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "denied\n", cmdErr.Stderr)
	assert.Contains(t, err.Error(), "command 'sh -c")
}

func TestExecRunnerTimeout(t *testing.T) {
	if !IsCommandAvailable("sleep") {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ExecRunner{}.Run(ctx, "sleep", "5")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetClusterConfigExplicitPath(t *testing.T) {
	_, err := GetClusterConfig(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "kubeconfig file not found")

	kubeconfig := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kubeconfig, []byte(`apiVersion: v1
kind: Config
clusters:
- name: lab
  cluster:
    server: https://api.lab.example.com:6443
contexts:
- name: lab
  context:
    cluster: lab
    user: probe
current-context: lab
users:
- name: probe
  user:
    token: sha256~token
`), 0600))

	config, err := GetClusterConfig(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "https://api.lab.example.com:6443", config.Host)

	clients, err := NewClients(config)
	require.NoError(t, err)
	assert.NotNil(t, clients.Kube)
	assert.NotNil(t, clients.Route)
}
