package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/utils"
	"github.com/gin-gonic/gin"
)

// LedgerAnalytics reports every successful ledger mutation to posthog.
// Reads are not tracked. Event names are derived from the route, e.g.
// "POST /api/v1/entries/:entryID/post" becomes "ledger_entries_post".
func LedgerAnalytics(client *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.IsInitialized() || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if len(c.Errors) > 0 || status >= http.StatusBadRequest {
			return
		}
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return
		}
		event := ledgerEventName(c.Request.Method, c.FullPath())
		if event == "" {
			return
		}
		tenantID, _ := GetTenantIDFromContext(c)

		props := map[string]any{
			"status_code": status,
			"latency_ms":  time.Since(start).Milliseconds(),
			"partial":     status == http.StatusMultiStatus,
		}
		for _, p := range c.Params {
			props[p.Key] = p.Value
		}
		client.CaptureTenantEvent(userID, tenantID, event, props)
	}
}

// ledgerEventName drops the API prefix and path parameters from a route
// template. DELETE routes get a "_delete" suffix.
func ledgerEventName(method, route string) string {
	route = strings.TrimPrefix(route, "/api/v1")
	parts := make([]string, 0, 4)
	for _, seg := range strings.Split(route, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") {
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return ""
	}
	if method == http.MethodDelete {
		parts = append(parts, "delete")
	}
	return "ledger_" + strings.Join(parts, "_")
}
