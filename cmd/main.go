package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/container"
	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/router"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	app, err := container.New(ctx, cfg, logger, container.Options{})
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer app.Close()

	var searcher handlers.UserSearcher
	if app.Index != nil {
		searcher = app.Index
	}
	deps := router.Deps{
		Config: cfg,
		Logger: logger,
		Redis:  app.Redis,
		Users:  handlers.NewUserHandler(app.Service, searcher, logger, cfg.DefaultPageSize, cfg.MaxPageSize),
		Health: handlers.NewHealthHandler(app.HealthChecks(), logger),
	}

	r := router.NewEngine(cfg, logger)
	reg := router.NewRegistry(r)
	router.InitModules(reg, deps)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}
	logger.Info("server exited properly")
}
