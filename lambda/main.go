package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/bootstrap"
	"github.com/SigNoz/pcparts-store/internal/logger"
	"github.com/SigNoz/pcparts-store/pkg/config"
)

func main() {
	cfg := config.LoadConfig() // Load environment variables first

	zl, err := logger.Init(cfg.LogLevel, cfg.AppEnv, cfg.OTELServiceName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		zl.Fatal("Invalid configuration", zap.Error(err))
	}

	// wired once per container and reused across invocations
	rt, err := bootstrap.New(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer rt.Shutdown(context.Background())

	lambda.Start(NewHandler(rt.Router))
}
