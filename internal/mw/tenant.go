package mw

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// TenantHeader carries the machine identifier scoping every data request.
const TenantHeader = "x-tenant-id"

// APIKeyHeader carries the optional static API key.
const APIKeyHeader = "x-api-key"

// ContextTenantKey is where the validated tenant ID is stored on the
// request context.
const ContextTenantKey = "tenant_id"

var tenantIDPattern = regexp.MustCompile(`^VM-\d+$`)

// TenantRequired validates the x-tenant-id header on /api routes. Paths in
// the exclusion list (status, health, logs, webhooks, diagnostics) pass
// through untouched; the payment provider cannot supply a tenant header.
func TenantRequired(excluded []string) gin.HandlerFunc {
	skip := make(map[string]bool, len(excluded))
	for _, path := range excluded {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		tenantID := c.GetHeader(TenantHeader)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Tenant ID is required in headers as x-tenant-id"})
			return
		}
		if !tenantIDPattern.MatchString(tenantID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid Tenant ID format"})
			return
		}

		c.Set(ContextTenantKey, tenantID)
		c.Next()
	}
}

// Tenant returns the validated tenant ID from the request context.
func Tenant(c *gin.Context) string {
	return c.GetString(ContextTenantKey)
}

// APIKeyRequired enforces the static API key on mutating calls when a key
// is configured. Reads stay open; an empty configured key disables the
// check entirely.
func APIKeyRequired(key string, excluded []string) gin.HandlerFunc {
	skip := make(map[string]bool, len(excluded))
	for _, path := range excluded {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if key == "" || skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if c.GetHeader(APIKeyHeader) != key {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid API key"})
				return
			}
		}
		c.Next()
	}
}

// CORS answers preflight requests and sets the allow headers for the
// configured frontend origins. A "*" entry allows any origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			header := c.Writer.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			header.Set("Access-Control-Allow-Headers", strings.Join([]string{
				"Content-Type", "Authorization", TenantHeader, APIKeyHeader,
			}, ", "))
			header.Set("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
