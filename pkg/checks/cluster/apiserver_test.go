package cluster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayaseen/cluster-probes/pkg/types"
)

func TestReadyzURL(t *testing.T) {
	assert.Equal(t, "https://api.example:6443/readyz", ReadyzURL("https://api.example:6443/"))
	assert.Equal(t, "https://api.example:6443/readyz", ReadyzURL(" https://api.example:6443 "))
}

func TestAPIServerReadyzCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus types.Status
	}{
		{name: "ready", status: http.StatusOK, body: "ok", wantStatus: types.StatusOK},
		{
			name:       "not ready with passing sub-checks",
			status:     http.StatusInternalServerError,
			body:       "[+]ping ok\n[-]etcd failed: reason withheld\nreadyz check failed",
			wantStatus: types.StatusCritical,
		},
		{name: "forbidden", status: http.StatusForbidden, body: "forbidden", wantStatus: types.StatusCritical},
		{name: "unexpected body", status: http.StatusOK, body: "starting", wantStatus: types.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			deps := testDeps()
			deps.HTTP = server.Client()
			deps.APIServerURL = server.URL

			result, err := NewAPIServerReadyzCheck(deps).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "/readyz", path)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.body, result.Detail)
		})
	}
}

func TestAPIServerReadyzCheckUnknownURL(t *testing.T) {
	result, err := NewAPIServerReadyzCheck(testDeps()).Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, types.StatusCritical, result.Status)
}

func TestAPIServerReadyzCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	deps := testDeps()
	deps.HTTP = http.DefaultClient
	deps.APIServerURL = url

	result, err := NewAPIServerReadyzCheck(deps).Run(context.Background())
	assert.Error(t, err)
	assert.False(t, result.Passed())
}
