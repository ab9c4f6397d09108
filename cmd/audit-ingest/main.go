package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/roster/internal/config"
	"github.com/jacentio/roster/internal/logging"
	"github.com/jacentio/roster/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Init("audit-ingest", cfg.LogLevel, cfg.AppEnv)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	h := stream.NewHandler(dynamodb.NewFromConfig(awsCfg), cfg.AuditTable, logger)
	lambda.Start(h.HandleAuditEvent)
}
