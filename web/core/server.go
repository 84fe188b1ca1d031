package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/adamwrona/galleria/config"
	"github.com/adamwrona/galleria/web/middleware"
)

var startTime = time.Now()

// ServerDependencies is everything the HTTP server needs beyond routing.
type ServerDependencies struct {
	DB     *gorm.DB
	Routes *RouterDependencies
}

func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := config.Get()
	router := gin.New()

	// gin request logging only in development builds
	if config.CommitHash != "n/a" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://" + cfg.Addr()},
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)
	router.MaxMultipartMemory = int64(cfg.UploadMaxSizeMB) << 20

	router.LoadHTMLGlob(cfg.TemplatesGlob)

	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
	}
	deps.Routes.AuthRateLimiter = authRateLimiter

	healthHandler := NewHealthHandler(deps.DB)
	router.GET("/health", healthHandler.Handle)

	RegisterRoutes(router, deps.Routes)

	return router, cleanup
}

// StartServer builds the configured http.Server. The returned cleanup stops
// background goroutines started during setup.
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := config.Get()
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
