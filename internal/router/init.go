package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-service/internal/router/modules"
	"github.com/oksasatya/go-ddd-user-service/pkg/validation"
)

// Deps is everything the HTTP modules need. Redis may be nil, which turns
// rate limiting off.
type Deps struct {
	Config *config.Config
	Logger *logrus.Logger
	Redis  *redis.Client
	Users  *handlers.UserHandler
	Health *handlers.HealthHandler
}

// NewEngine builds the gin engine with the global middleware chain.
func NewEngine(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	validation.Init()

	r := gin.New()
	// gin trusts every peer by default; only configured proxies may set the
	// client address through forwarding headers.
	if err := r.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		logger.WithError(err).Warn("invalid TRUSTED_PROXIES; forwarding headers ignored")
		_ = r.SetTrustedProxies(nil)
	}
	if cfg.BehindCloudflare {
		r.TrustedPlatform = gin.PlatformCloudflare
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}
	return r
}

// InitModules registers every module with the registry. Call once at startup.
func InitModules(r *Registry, d Deps) {
	limits := modules.RateLimits{
		PerIP:     d.Config.RateLimitPerIP,
		PerIPPath: d.Config.RateLimitPerIPPath,
		Window:    d.Config.RateLimitWindow,
	}
	var rdb *redis.Client
	if d.Config.RateLimitEnabled {
		rdb = d.Redis
	}
	var bypass []middleware.AllowFunc
	if d.Config.RateLimitBypassLocal {
		bypass = append(bypass, middleware.AllowPrivateIP())
	}
	if paths := d.Config.RateLimitExempt(); len(paths) > 0 {
		bypass = append(bypass, middleware.AllowPaths(paths...))
	}
	var allow middleware.AllowFunc
	if len(bypass) > 0 {
		allow = middleware.AnyAllow(bypass...)
	}

	r.AddRoot(modules.NewHealthModule(d.Health))
	r.Add(modules.NewUserModule(d.Users, rdb, limits, allow))
	if d.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb, allow))
	}
}
