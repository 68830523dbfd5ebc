package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/cerberus"
	"github.com/fleetdesk/backend/internal/config"
	"github.com/fleetdesk/backend/internal/interceptor"
	"github.com/fleetdesk/backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	guard  *interceptor.Guard
	ledger *audit.Ledger
	svc    *services.SecurityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := OpenTestDB(t)
	svc := services.NewSecurityService(db)
	ledger := audit.New(audit.DefaultConfig(), audit.WithBlockListener(svc.OnBlock))
	guard := interceptor.New(interceptor.DefaultConfig(), nil, nil, ledger)
	store := interceptor.NewGuardedStore(guard, services.NewResourceService(db))
	cerb := cerberus.New(config.SecurityConfig{}, ledger)

	r := gin.New()
	r.GET("/health", HealthHandler(db))

	sh := NewSecurityHandler(ledger, svc)
	sec := r.Group("/security", cerb.Identify())
	sec.GET("/violations", sh.GetViolations)
	sec.DELETE("/violations", sh.ClearViolations)
	sec.GET("/metrics", sh.GetMetrics)
	sec.GET("/blocks", sh.GetBlocks)
	sec.DELETE("/blocks/:id", sh.Unblock)
	sec.GET("/decisions", sh.GetDecisions)

	rh := NewResourceHandler(store, services.Resources())
	res := r.Group("/:resource", rh.KnownResource, cerb.Middleware())
	res.GET("", rh.List)
	res.POST("", rh.Create)
	res.GET("/:id", rh.Get)
	res.PUT("/:id", rh.Update)
	res.DELETE("/:id", rh.Delete)

	return &testEnv{db: db, router: r, guard: guard, ledger: ledger, svc: svc}
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("k"))
	require.NoError(t, err)
	return "Bearer " + s
}

// do sends a request as user (empty for anonymous) and decodes a JSON body
// into out when out is not nil.
func (e *testEnv) do(t *testing.T, method, path, user string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", bearer(t, user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}
