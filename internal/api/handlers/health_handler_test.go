package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	var resp map[string]string
	w := env.do(t, http.MethodGet, "/health", "", nil, &resp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "FleetDesk", resp["service"])
	assert.NotEmpty(t, resp["version"])
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	var resp map[string]string
	w := env.do(t, http.MethodGet, "/health", "", nil, &resp)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", resp["status"])
}
