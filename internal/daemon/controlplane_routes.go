package daemon

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/syncany/syncany-go/internal/daemon/folder"
	"github.com/syncany/syncany-go/internal/daemon/handlers"
	"github.com/syncany/syncany-go/internal/daemon/middleware"
	"github.com/syncany/syncany-go/internal/daemon/wshub"
	"github.com/syncany/syncany-go/internal/version"
)

type RouteConfig struct {
	Auth    middleware.TokenAuthConfig
	Metrics bool
	// RateLimit is the number of requests per second per client, 0 for the default.
	RateLimit int64
}

func SetupRoutes(folders *folder.Service, registry *folder.Registry, hub *wshub.Hub, routeConfig *RouteConfig) http.Handler {
	r := gin.New()

	rate := routeConfig.RateLimit
	if rate <= 0 {
		rate = 100
	}
	rateLimiter := limiter.New(memory.NewStore(), limiter.Rate{
		Period: 1 * time.Second,
		Limit:  rate,
	})

	statusH := handlers.NewStatusHandler(registry, hub, folders)
	folderH := handlers.NewFolderHandler(folders, hub)

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.Secure())
	r.Use(middleware.Gzip())
	r.Use(mgin.NewMiddleware(rateLimiter))

	r.GET("/", IndexHandler)
	if routeConfig.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(routeConfig.Auth))
	{
		v1.GET("/status", statusH.Status)
		v1.GET("/watches", folderH.Watches)
		v1.GET("/events", hub.Handler)

		v1Folder := v1.Group("/folder")
		{
			v1Folder.GET("/headers", folderH.Headers)
			v1Folder.GET("/log", folderH.Log)
			v1Folder.POST("/versions", folderH.AppendVersion)
			v1Folder.POST("/status", folderH.StatusText)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler()
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func IndexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Detailed())
}
