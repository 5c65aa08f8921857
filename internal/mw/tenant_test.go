package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTenantRouter(excluded []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TenantRequired(excluded))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant": Tenant(c)})
	}
	r.GET("/api/inventory", handler)
	r.GET("/api/health", handler)
	return r
}

func TestTenantHeaderMissing(t *testing.T) {
	router := setupTenantRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/inventory", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Tenant ID is required")
}

func TestTenantHeaderInvalidFormat(t *testing.T) {
	router := setupTenantRouter(nil)

	for _, bad := range []string{"VM-", "vm-001", "MACHINE-1", "VM-1x"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/inventory", nil)
		req.Header.Set(TenantHeader, bad)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, "tenant %q", bad)
	}
}

func TestTenantHeaderAccepted(t *testing.T) {
	router := setupTenantRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set(TenantHeader, "VM-001")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "VM-001")
}

func TestTenantHeaderCaseInsensitive(t *testing.T) {
	router := setupTenantRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("X-Tenant-ID", "VM-002")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "VM-002")
}

func TestExcludedPathSkipsTenantCheck(t *testing.T) {
	router := setupTenantRouter([]string{"/api/health"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func setupAPIKeyRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyRequired(key, nil))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/inventory", ok)
	r.POST("/api/inventory", ok)
	return r
}

func TestAPIKeyEnforcedOnMutations(t *testing.T) {
	router := setupAPIKeyRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/inventory", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/inventory", nil)
	req.Header.Set(APIKeyHeader, "secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyNotRequiredForReads(t *testing.T) {
	router := setupAPIKeyRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/inventory", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyDisabledWhenUnset(t *testing.T) {
	router := setupAPIKeyRouter("")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/inventory", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com"}))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	router := r
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), TenantHeader)
}

func TestCORSUnknownOriginGetsNoAllowHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com"}))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
