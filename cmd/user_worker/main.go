package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/worker"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-user-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQUserEventsQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if len(cfg.ESAddrs()) == 0 {
		log.Fatal("Elasticsearch not configured")
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch client: %v", err)
	}
	index := elasticsearch.NewUserIndex(es, cfg.ESUsersIndex)

	var sender mailer.Sender
	switch {
	case !cfg.MailSendEnabled:
		logger.Info("MAIL_SEND_ENABLED=false; indexing only, no emails will be sent")
	case cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "":
		logger.Warn("Mailgun not configured; indexing only")
	default:
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue, 16)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries(cfg.AppName + "-user-worker")
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := worker.NewUserEventHandler(index, sender, cfg, logger)
	logger.Infof("user worker listening on queue=%s", cfg.RabbitMQUserEventsQueue)
	handler.Run(ctx, msgs)
	logger.Info("user worker stopped")
}
