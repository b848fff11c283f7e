package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application"
	"github.com/oksasatya/go-ddd-user-service/internal/container"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

var demoUsers = []application.CreateUserInput{
	{Email: "ada@example.com", Name: "Ada Lovelace"},
	{Email: "grace@example.com", Name: "Grace Hopper"},
	{Email: "alan@example.com", Name: "Alan Turing"},
	{Email: "edsger@example.com", Name: "Edsger Dijkstra"},
	{Email: "barbara@example.com", Name: "Barbara Liskov"},
}

// inactive are deactivated after creation so listings show both states.
var inactive = map[string]bool{"alan@example.com": true}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	app, err := container.New(ctx, cfg, logger, container.Options{})
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer app.Close()

	created := 0
	for _, in := range demoUsers {
		u, err := app.Service.CreateUser(ctx, in)
		if errors.Is(err, entity.ErrDuplicateEmail) {
			logger.WithField("email", in.Email).Info("user exists, skipping")
			continue
		}
		if err != nil {
			log.Fatalf("seed %s: %v", in.Email, err)
		}
		if inactive[in.Email] {
			if _, err := app.Service.DeactivateUser(ctx, u.ID); err != nil {
				log.Fatalf("deactivate %s: %v", in.Email, err)
			}
		}
		created++
		logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email}).Info("seeded user")
	}
	logger.WithField("created", created).Info("seed complete")
}
