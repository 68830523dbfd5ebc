package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vehicleBody(plate string) map[string]any {
	return map[string]any{"plate": plate, "brand": "Toyota", "model": "Corolla", "year": 2019}
}

func TestResourceHandler_CRUD(t *testing.T) {
	env := newTestEnv(t)

	var created map[string]any
	w := env.do(t, http.MethodPost, "/vehicles", "u1", map[string]any{
		"plate": "AB-123-CD", "brand": "Toyota", "model": "Corolla", "year": 2019, "notes": "O'Brien's car",
	}, &created)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "O&#x27;Brien&#x27;s car", created["notes"])

	var list []map[string]any
	w = env.do(t, http.MethodGet, "/vehicles", "u1", nil, &list)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, list, 1)

	var updated map[string]any
	w = env.do(t, http.MethodPut, "/vehicles/"+id, "u1", map[string]any{"mileage": 1200}, &updated)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1200.0, updated["mileage"])

	var got map[string]any
	w = env.do(t, http.MethodGet, "/vehicles/"+id, "u1", nil, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AB-123-CD", got["plate"])

	w = env.do(t, http.MethodDelete, "/vehicles/"+id, "u1", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/vehicles/"+id, "u1", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodDelete, "/vehicles/"+id, "u1", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResourceHandler_RejectsMaliciousContent(t *testing.T) {
	env := newTestEnv(t)
	body := vehicleBody("AB-1")
	body["notes"] = "<script>alert(1)</script>"

	var resp struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}
	w := env.do(t, http.MethodPost, "/vehicles", "u1", body, &resp)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "malicious content detected", resp.Error)
	assert.Contains(t, resp.Fields, "notes")
	assert.NotContains(t, w.Body.String(), "<script>")

	var list []map[string]any
	env.do(t, http.MethodGet, "/vehicles", "u1", nil, &list)
	assert.Empty(t, list)
	assert.Equal(t, 1, env.ledger.Len())
}

func TestResourceHandler_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	var resp struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}
	w := env.do(t, http.MethodPost, "/drivers", "u1", map[string]any{"email": "not-an-email"}, &resp)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "name")
	assert.Contains(t, resp.Fields, "email")
	assert.Zero(t, env.ledger.Len())
}

func TestResourceHandler_BadBodies(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{"", "[1,2]", "null", "{not json", `"text"`} {
		w := env.do(t, http.MethodPost, "/drivers", "u1", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}

	big := `{"notes":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	w := env.do(t, http.MethodPost, "/drivers", "u1", big, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResourceHandler_UnknownResource(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/spaceships", "u1", map[string]any{"name": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/spaceships", "u1", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, env.guard.Limiter().Len())
}

func TestResourceHandler_PersistenceValidation(t *testing.T) {
	env := newTestEnv(t)
	// passes field rules, fails the model's oneof constraint
	w := env.do(t, http.MethodPost, "/transactions", "u1", map[string]any{
		"vehicle_id": "v1", "kind": "gift", "amount": "10", "date": "2026-05-04",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid payload")
}

func TestResourceHandler_RateLimitThenBlock(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 20; i++ {
		w := env.do(t, http.MethodPost, "/vehicles", "u1", vehicleBody(fmt.Sprintf("AB-%03d", i)), nil)
		require.Equal(t, http.StatusCreated, w.Code, "insert %d: %s", i+1, w.Body.String())
	}
	w := env.do(t, http.MethodPost, "/vehicles", "u1", vehicleBody("AB-999"), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// keep hammering: the rate-limit violations accumulate into a block
	for i := 0; i < 5; i++ {
		env.do(t, http.MethodPost, "/vehicles", "u1", vehicleBody("AB-999"), nil)
	}
	require.True(t, env.ledger.IsBlocked("u1"))

	w = env.do(t, http.MethodGet, "/vehicles", "u1", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// other users are unaffected
	w = env.do(t, http.MethodGet, "/vehicles", "u2", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
