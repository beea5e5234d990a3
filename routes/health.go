package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/thedemonsid/quiz-app/utils"
)

// StorageProbe reports whether uploads can currently be written.
type StorageProbe interface {
	CheckWritable() error
}

// SetupHealthRoutes registers liveness and readiness probes. rdb may be nil.
func SetupHealthRoutes(router gin.IRouter, storage StorageProbe, rdb *redis.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/ready", handleReady(storage, rdb))
}

func handleReady(storage StorageProbe, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}
		ready := true

		if err := storage.CheckWritable(); err != nil {
			checks["storage"] = "unavailable"
			ready = false
		} else {
			checks["storage"] = "ok"
		}

		if rdb != nil {
			ctx, cancel := utils.WithShortTimeout(c.Request.Context())
			defer cancel()
			// Redis only backs rate limiting, which degrades to local buckets
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "degraded"
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks, "timestamp": time.Now()})
	}
}
