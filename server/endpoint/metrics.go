package endpoint

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// Metrics reports Go runtime statistics. Request and replication metrics
// go out through the OTLP exporter instead.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		c.JSON(http.StatusOK, gin.H{
			"goroutines": runtime.NumGoroutine(),
			"cpus":       runtime.NumCPU(),
			"heap": gin.H{
				"alloc_bytes":   m.HeapAlloc,
				"objects":       m.HeapObjects,
				"sys_bytes":     m.HeapSys,
				"gc_runs":       m.NumGC,
				"gc_pause_last": m.PauseNs[(m.NumGC+255)%256],
			},
		})
	}
}
