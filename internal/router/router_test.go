package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-ddd-user-service/config"
	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
)

func TestRegistryMountsRootAndAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(gin.New())

	reg.Use(func(c *gin.Context) {
		c.Header("X-API", "1")
		c.Next()
	})
	reg.AddRoot(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	}))
	reg.Add(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/thing", func(c *gin.Context) { c.String(http.StatusOK, "thing") })
	}))
	reg.RegisterAll()

	w := httptest.NewRecorder()
	reg.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-API"))

	w = httptest.NewRecorder()
	reg.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/thing", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-API"))

	w = httptest.NewRecorder()
	reg.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitModulesDebugToggle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	for _, enabled := range []bool{false, true} {
		cfg := &config.Config{DebugMetricsEnabled: enabled, RateLimitExemptPaths: "/api/debug/vars"}
		engine := NewEngine(cfg, logger)
		reg := NewRegistry(engine)
		InitModules(reg, Deps{
			Config: cfg,
			Logger: logger,
			Users:  handlers.NewUserHandler(nil, nil, logger, 20, 100),
			Health: handlers.NewHealthHandler(nil, logger),
		})
		reg.RegisterAll()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
		if enabled {
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "memstats")
		} else {
			assert.Equal(t, http.StatusNotFound, w.Code)
		}

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestNewEngineTrustsOnlyConfiguredProxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	cases := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"no proxies", &config.Config{}, "203.0.113.7"},
		{"peer is a proxy", &config.Config{TrustedProxies: "203.0.113.0/24"}, "10.0.0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(tc.cfg, logger)
			engine.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = "203.0.113.7:5555"
			req.Header.Set("X-Forwarded-For", "10.0.0.1")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}
