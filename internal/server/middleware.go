// internal/server/middleware.go
package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	commonerrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/metrics"
	"pos-insights/internal/models"
)

// tenantMiddleware resolves the caller's organization from the
// X-Org-Id header. Every /api route requires it; there is no implicit
// default tenant.
func (s *Server) tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetHeader("X-Org-Id")
		if orgID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing X-Org-Id header",
			})
			return
		}
		tenant := models.TenantContext{
			OrgID:  orgID,
			UserID: c.GetHeader("X-User-Id"),
			Role:   c.GetHeader("X-User-Role"),
		}
		if access := c.GetHeader("X-Location-Access"); access != "" {
			tenant.LocationAccess = strings.Split(access, ",")
		}
		c.Set("tenant", tenant)
		c.Next()
	}
}

// rateLimitMiddleware applies the fixed-window limit per organization.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := tenantFromContext(c)
		key := tenant.OrgID + ":" + c.FullPath()
		if !s.limiter.Allow(key) {
			metrics.RateLimitDrops.WithLabelValues(c.FullPath()).Inc()
			s.logger.Warn("rate limit exceeded", map[string]interface{}{
				"orgId": tenant.OrgID,
				"route": c.FullPath(),
			})
			limited := commonerrors.NewRateLimitedError(tenant.OrgID)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": limited.Message,
			})
			return
		}
		c.Next()
	}
}
