package networking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	configv1 "github.com/openshift/api/config/v1"
	routev1 "github.com/openshift/api/route/v1"
	configfake "github.com/openshift/client-go/config/clientset/versioned/fake"
	routefake "github.com/openshift/client-go/route/clientset/versioned/fake"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/types"
	"github.com/ayaseen/cluster-probes/pkg/utils"
)

type fakeRunner struct {
	out string
	err error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return f.out, f.err
}

func statusServer(t *testing.T, tls bool, status int) *httptest.Server {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	var server *httptest.Server
	if tls {
		server = httptest.NewTLSServer(handler)
	} else {
		server = httptest.NewServer(handler)
	}
	t.Cleanup(server.Close)
	return server
}

func testDeps(clients *utils.Clients, client *http.Client) common.Dependencies {
	logger, _ := test.NewNullLogger()
	return common.Dependencies{
		Clients:  clients,
		HTTP:     client,
		Log:      logrus.NewEntry(logger),
		Settings: common.DefaultSettings(),
	}
}

func clusterConsole(url string) *configv1.Console {
	return &configv1.Console{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster"},
		Status:     configv1.ConsoleStatus{ConsoleURL: url},
	}
}

func TestConsoleCheck(t *testing.T) {
	for _, tt := range []struct {
		status     int
		wantStatus types.Status
	}{
		{status: http.StatusOK, wantStatus: types.StatusOK},
		{status: http.StatusServiceUnavailable, wantStatus: types.StatusCritical},
	} {
		server := statusServer(t, false, tt.status)
		clients := &utils.Clients{OpenShiftConfig: configfake.NewSimpleClientset(clusterConsole(server.URL))}

		result, err := NewConsoleCheck(testDeps(clients, server.Client())).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.wantStatus, result.Status)
		assert.Equal(t, server.URL, result.Metadata["url"])
	}
}

func TestConsoleCheckFallsBackToOC(t *testing.T) {
	server := statusServer(t, false, http.StatusOK)
	deps := testDeps(&utils.Clients{OpenShiftConfig: configfake.NewSimpleClientset()}, server.Client())
	deps.Commands = &fakeRunner{out: server.URL + "\n"}

	result, err := NewConsoleCheck(deps).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, result.Status)
	assert.Equal(t, server.URL, result.Metadata["url"])
}

func TestConsoleCheckNoURL(t *testing.T) {
	deps := testDeps(&utils.Clients{OpenShiftConfig: configfake.NewSimpleClientset()}, http.DefaultClient)
	deps.Commands = &fakeRunner{err: errors.New("oc: not logged in")}

	result, err := NewConsoleCheck(deps).Run(context.Background())
	assert.ErrorContains(t, err, "not logged in")
	assert.Equal(t, types.StatusCritical, result.Status)
}

func registryRoute(host string) *routev1.Route {
	return &routev1.Route{
		ObjectMeta: metav1.ObjectMeta{Name: "public-registry", Namespace: "openshift-image-registry"},
		Spec:       routev1.RouteSpec{Host: host},
	}
}

func TestImageRegistryCheck(t *testing.T) {
	var path string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "https://")
	clients := &utils.Clients{Route: routefake.NewSimpleClientset(registryRoute(host))}

	result, err := NewImageRegistryCheck(testDeps(clients, server.Client())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, result.Status)
	assert.Equal(t, "/healthz", path)
	assert.Equal(t, "https://"+host+"/healthz", result.Metadata["url"])
}

func TestImageRegistryCheckUnhealthy(t *testing.T) {
	server := statusServer(t, true, http.StatusBadGateway)
	host := strings.TrimPrefix(server.URL, "https://")
	clients := &utils.Clients{Route: routefake.NewSimpleClientset(registryRoute(host))}

	result, err := NewImageRegistryCheck(testDeps(clients, server.Client())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusCritical, result.Status)
	assert.Equal(t, "502", result.Metadata["status_code"])
}

func TestImageRegistryCheckRouteMissing(t *testing.T) {
	clients := &utils.Clients{Route: routefake.NewSimpleClientset()}

	result, err := NewImageRegistryCheck(testDeps(clients, http.DefaultClient)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusCritical, result.Status)
	assert.NotEmpty(t, result.Recommendations)
}

func TestImageRegistryCheckRouteWithoutHost(t *testing.T) {
	clients := &utils.Clients{Route: routefake.NewSimpleClientset(registryRoute(""))}

	result, err := NewImageRegistryCheck(testDeps(clients, http.DefaultClient)).Run(context.Background())
	assert.Error(t, err)
	assert.False(t, result.Passed())
}
