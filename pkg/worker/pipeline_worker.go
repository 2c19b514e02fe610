package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/queue"
)

// PipelineWorker consumes rebuild and simulation tasks. It also runs a
// scheduler that triggers a full rebuild on a fixed interval so late raw
// records surface without anyone pressing a button.
type PipelineWorker struct {
	BaseWorker
	service       pipeline.Service
	scheduler     *asynq.Scheduler
	rerunInterval time.Duration
}

func NewPipelineWorker(cfg *Config, svc pipeline.Service, rerunInterval time.Duration, log logger.Logger) (*PipelineWorker, error) {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      cfg.Queues,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return time.Duration(n) * 30 * time.Second
		},
	})

	w := &PipelineWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log.Named("worker"),
			stopChan: make(chan struct{}),
		},
		service:       svc,
		scheduler:     asynq.NewScheduler(redisOpt, nil),
		rerunInterval: rerunInterval,
	}

	w.registerHandlers()
	if err := w.registerSchedule(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *PipelineWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypePipelineRun, w.handleRun)
	w.mux.HandleFunc(queue.TaskTypeScheduledRun, w.handleScheduledRun)
	w.mux.HandleFunc(queue.TaskTypeSimComplete, w.handleSimComplete)
}

func (w *PipelineWorker) registerSchedule() error {
	task := asynq.NewTask(queue.TaskTypeScheduledRun, nil, asynq.Queue(queue.QueueRuns))
	if _, err := w.scheduler.Register(fmt.Sprintf("@every %s", w.rerunInterval), task); err != nil {
		return fmt.Errorf("failed to register rebuild schedule: %w", err)
	}
	return nil
}

func (w *PipelineWorker) handleRun(ctx context.Context, t *asynq.Task) error {
	var task queue.RunTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal run task: %w", err)
	}
	if task.RunID == "" {
		return fmt.Errorf("run task without run id")
	}

	w.logger.Info("executing pipeline run", logger.String("run_id", task.RunID))
	if err := w.service.ExecuteRun(ctx, task.RunID); err != nil {
		w.logger.Error("pipeline run failed",
			logger.String("run_id", task.RunID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (w *PipelineWorker) handleScheduledRun(ctx context.Context, t *asynq.Task) error {
	run, err := w.service.TriggerRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to trigger scheduled run: %w", err)
	}
	w.logger.Debug("scheduled rebuild triggered", logger.String("run_id", run.ID))
	return nil
}

func (w *PipelineWorker) handleSimComplete(ctx context.Context, t *asynq.Task) error {
	var task queue.SimCompleteTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal completion task: %w", err)
	}
	if err := w.service.CompleteSimOrder(ctx, task.OrderID); err != nil {
		w.logger.Error("simulated delivery failed",
			logger.String("order_id", task.OrderID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (w *PipelineWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.logger.Error("scheduler stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

func (w *PipelineWorker) Stop() error {
	w.scheduler.Shutdown()
	return w.BaseWorker.Stop()
}
