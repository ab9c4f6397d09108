package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"

	"github.com/jacentio/roster/handler"
	"github.com/jacentio/roster/internal/config"
	"github.com/jacentio/roster/internal/logging"
	"github.com/jacentio/roster/service"
	"github.com/jacentio/roster/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Init("users-api", cfg.LogLevel, cfg.AppEnv)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	storeCfg := store.Config{
		UsersTable:       cfg.UsersTable,
		IdempotencyTable: cfg.IdempotencyTable,
		AuditTable:       cfg.AuditTable,
		EventBus:         cfg.EventBus,
	}
	db := dynamodb.NewFromConfig(awsCfg)

	svc := service.New(
		store.New(db, storeCfg),
		store.NewIdempotency(db, storeCfg, logger),
		store.NewEmitter(eventbridge.NewFromConfig(awsCfg), storeCfg, logger),
		logger,
	)

	lambda.Start(handler.NewHandler(svc, logger).Handle)
}
