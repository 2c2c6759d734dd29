package incentives

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venturehq/incentive-engine/pkg/logger"
)

// allowedMethods maps registered paths to their verbs for the Allow header
// on 405 responses.
var allowedMethods = map[string]string{
	"/incentives/run":                "POST",
	"/incentives/commit":             "POST",
	"/incentives/rules":              "GET, POST, PUT, DELETE",
	"/incentives/my-daily":           "GET",
	"/incentives/user-daily":         "GET",
	"/incentives/venture-summary":    "GET",
	"/incentives/venture-timeseries": "GET",
	"/incentives/user-timeseries":    "GET",
	"/incentives/audit-daily":        "GET",
	"/incentives/gamification/my":    "GET",
}

// SetupRouter builds the gin engine with all incentive routes mounted.
func SetupRouter(handler *Handler, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		if allow, ok := allowedMethods[c.Request.URL.Path]; ok {
			c.Header("Allow", allow)
		}
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":     "Method not allowed",
			"timestamp": time.Now().UTC(),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/incentives")
	api.Use(IdentityMiddleware())
	{
		api.POST("/run", handler.Run)
		api.POST("/commit", handler.Commit)

		api.GET("/rules", handler.ListRules)
		api.POST("/rules", handler.CreateRule)
		api.PUT("/rules", handler.UpdateRule)
		api.DELETE("/rules", handler.DeleteRule)

		api.GET("/my-daily", handler.MyDaily)
		api.GET("/user-daily", handler.UserDaily)
		api.GET("/venture-summary", handler.VentureSummary)
		api.GET("/venture-timeseries", handler.VentureTimeseries)
		api.GET("/user-timeseries", handler.UserTimeseries)
		api.GET("/audit-daily", handler.AuditDaily)
		api.GET("/gamification/my", handler.MyGamification)
	}

	return router
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Handled request")
	}
}
