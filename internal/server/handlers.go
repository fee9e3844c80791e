// internal/server/handlers.go
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos-insights/internal/models"
)

// handleAIQuery runs the full pipeline. Expected pipeline failures
// (rejected SQL, execution errors) still answer 200 with an apologetic
// payload; only a malformed request body is a client error.
func (s *Server) handleAIQuery(c *gin.Context) {
	var req models.AIQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tenant := tenantFromContext(c)
	resp := s.aiService.HandleAIQuery(c.Request.Context(), tenant, req)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleKPIData(c *gin.Context) {
	tenant := tenantFromContext(c)
	from, to, ok := dateRangeParams(c)
	if !ok {
		return
	}

	kpis, err := s.store.KPIData(c.Request.Context(), tenant.OrgID, from, to)
	if err != nil {
		s.logger.Error("KPI query failed", map[string]interface{}{
			"orgId": tenant.OrgID,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load KPI data"})
		return
	}
	c.JSON(http.StatusOK, kpis)
}

func (s *Server) handleSalesChart(c *gin.Context) {
	tenant := tenantFromContext(c)
	from, to, ok := dateRangeParams(c)
	if !ok {
		return
	}

	points, err := s.store.SalesChartData(c.Request.Context(), tenant.OrgID, from, to)
	if err != nil {
		s.logger.Error("sales chart query failed", map[string]interface{}{
			"orgId": tenant.OrgID,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sales chart"})
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) handleTopProducts(c *gin.Context) {
	tenant := tenantFromContext(c)
	from, to, ok := dateRangeParams(c)
	if !ok {
		return
	}

	products, err := s.store.TopProducts(c.Request.Context(), tenant.OrgID, from, to)
	if err != nil {
		s.logger.Error("top products query failed", map[string]interface{}{
			"orgId": tenant.OrgID,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load top products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleLocations(c *gin.Context) {
	tenant := tenantFromContext(c)

	locations, err := s.store.Locations(c.Request.Context(), tenant.OrgID)
	if err != nil {
		s.logger.Error("locations query failed", map[string]interface{}{
			"orgId": tenant.OrgID,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load locations"})
		return
	}
	c.JSON(http.StatusOK, locations)
}

// dateRangeParams reads the required from/to query parameters and
// writes the 400 response itself when either is missing.
func dateRangeParams(c *gin.Context) (string, string, bool) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to query parameters are required"})
		return "", "", false
	}
	return from, to, true
}
