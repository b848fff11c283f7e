package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/container"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

// export streams every user as NDJSON into gs://$GCS_BUCKET/$EXPORT_PREFIX/.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-export", cfg.Env)
	if cfg.GCSBucket == "" {
		log.Fatal("GCS_BUCKET is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// exports only read; the cache would just churn
	app, err := container.New(ctx, cfg, logger, container.Options{DisableEvents: true, DisableCache: true})
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer app.Close()

	gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		log.Fatalf("failed to init GCS client: %v", err)
	}
	defer func() { _ = gcs.Close() }()

	object := path.Join(cfg.ExportPrefix, fmt.Sprintf("users-%s.ndjson", time.Now().UTC().Format("20060102T150405Z")))

	pr, pw := io.Pipe()
	counted := make(chan int, 1)
	go func() {
		n, err := app.Service.ExportUsers(ctx, pw, 0)
		counted <- n
		_ = pw.CloseWithError(err)
	}()

	url, err := helpers.UploadObject(ctx, gcs, cfg.GCSBucket, object, "application/x-ndjson", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		log.Fatalf("export failed: %v", err)
	}
	logger.WithFields(logrus.Fields{"object": url, "users": <-counted}).Info("export complete")
}
