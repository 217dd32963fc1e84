package config

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// PerformanceLogger logs every request with its latency. Requests slower than
// slow are logged a second time under their route pattern, so reminder and
// booking ids do not scatter the slow-route lines.
func PerformanceLogger(slow time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		log.Printf("[PERF] %s %s -> %d in %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency)

		if slow > 0 && latency > slow {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			log.Printf("[PERF] slow route %s %s: %v (threshold %v)", c.Request.Method, route, latency, slow)
		}
	}
}
