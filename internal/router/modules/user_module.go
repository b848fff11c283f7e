package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
)

// RateLimits are the fixed-window budgets applied to user routes.
type RateLimits struct {
	PerIP     int
	PerIPPath int
	Window    time.Duration
}

// UserModule wires the user handlers into routes under the given group
// (usually /api):
//
//	POST   /users
//	GET    /users
//	GET    /users/search
//	GET    /users/:id
//	PUT    /users/:id
//	DELETE /users/:id
//	POST   /users/:id/activate
//	POST   /users/:id/deactivate
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
	Limits  RateLimits
	Allow   middleware.AllowFunc
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, limits RateLimits, allow middleware.AllowFunc) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, Limits: limits, Allow: allow}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(
		middleware.RateLimit(m.Redis, m.Limits.PerIP, m.Limits.Window, middleware.KeyByIP(), m.Allow),
		middleware.RateLimit(m.Redis, m.Limits.PerIPPath, m.Limits.Window, middleware.KeyByIPAndPath(), m.Allow),
	)
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
		users.POST("/:id/activate", m.Handler.Activate)
		users.POST("/:id/deactivate", m.Handler.Deactivate)
	}
}
