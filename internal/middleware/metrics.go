package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/normscout/normscout-backend/internal/observability"
)

// Metrics records one observation per request against the route template,
// not the raw path, so ids do not explode label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		m := observability.Current()
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		c.Next()
		m.ApiInflightDec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
