package opsdev_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

// TestHealthProbes checks both probes answer once the container is up.
func TestHealthProbes(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	health, err := opssdk.NewSDKClient(baseURL).Health(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)

	resp, err := http.Get(baseURL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ready opssdk.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	require.Equal(t, "ok", ready.Status)
}
