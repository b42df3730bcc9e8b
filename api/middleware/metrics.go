package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rmn-raj/seo-tool/metrics"
)

// Metrics counts requests by matched route and response status.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, c.Writer.Status())
	}
}
