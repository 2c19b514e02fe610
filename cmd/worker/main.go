package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/metrics"
	"github.com/woeat/pipeline/pkg/queue"
	"github.com/woeat/pipeline/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	svc, err := pipeline.GetService(log, metrics.NewRegistry())
	if err != nil {
		log.Error("Failed to create pipeline service", logger.Error(err))
		os.Exit(1)
	}

	redisCfg := config.GetRedisConfig()
	pipelineCfg := config.GetPipelineConfig()
	workerCfg := &worker.Config{
		RedisAddr:   redisCfg.Addr,
		RedisDB:     redisCfg.DB,
		Concurrency: 4,
		Queues: map[string]int{
			queue.QueueRuns: 3,
			queue.QueueSim:  1,
		},
	}

	pipelineWorker, err := worker.NewPipelineWorker(workerCfg, svc, pipelineCfg.RerunInterval, log)
	if err != nil {
		log.Error("Failed to create pipeline worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pipelineWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	pipelineWorker.Stop()
	log.Info("Worker stopped")
}
