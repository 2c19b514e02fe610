// Package queue carries pipeline work through asynq on redis: full rebuild
// runs and the delayed completion of simulated live orders. Run state lives
// in redis keyed by run id so the API can answer status queries without
// touching the worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/models"
)

const (
	TaskTypePipelineRun = "pipeline:run"
	// TaskTypeScheduledRun is emitted by the periodic scheduler; its handler
	// turns it into a tracked TaskTypePipelineRun.
	TaskTypeScheduledRun = "pipeline:scheduled"
	TaskTypeSimComplete  = "sim:complete"

	// QueueRuns carries full rebuilds, QueueSim the lightweight simulation
	// tasks. Rebuilds get the higher weight so a burst of simulated orders
	// never starves them.
	QueueRuns = "runs"
	QueueSim  = "sim"

	runKeyPrefix = "pipeline_run:"
	runTTL       = 24 * time.Hour
)

// ErrRunNotFound is returned when a run id is unknown to both redis and the
// task queues.
var ErrRunNotFound = errors.New("pipeline run not found")

// RunTask is the payload of a TaskTypePipelineRun task.
type RunTask struct {
	RunID string `json:"runId"`
}

// SimCompleteTask is the payload of a TaskTypeSimComplete task.
type SimCompleteTask struct {
	OrderID string `json:"orderId"`
}

// Queue is the task transport used by the API and the worker.
type Queue interface {
	EnqueueRun(ctx context.Context, run *models.PipelineRun) error
	EnqueueSimCompletion(ctx context.Context, orderID string, delay time.Duration) error
	GetRun(ctx context.Context, runID string) (*models.PipelineRun, error)
	SaveRun(ctx context.Context, run *models.PipelineRun) error
	Close() error
}

type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
}

type QueueConfig struct {
	RedisAddr  string
	RedisDB    int
	MaxRetries int
	RetryDelay time.Duration
	RunTimeout time.Duration
}

// GetQueue builds a queue from the redis configuration.
func GetQueue() (*AsynqQueue, error) {
	redisCfg := config.GetRedisConfig()
	return NewAsynqQueue(&QueueConfig{
		RedisAddr:  redisCfg.Addr,
		RedisDB:    redisCfg.DB,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
		RunTimeout: 10 * time.Minute,
	})
}

func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis: redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		}),
	}, nil
}

// EnqueueRun saves the run as pending and enqueues a rebuild task for it.
// The run id doubles as the asynq task id, so re-enqueueing the same run is
// a no-op rather than a duplicate rebuild.
func (q *AsynqQueue) EnqueueRun(ctx context.Context, run *models.PipelineRun) error {
	if err := q.SaveRun(ctx, run); err != nil {
		return err
	}

	payload, err := json.Marshal(RunTask{RunID: run.ID})
	if err != nil {
		return fmt.Errorf("failed to marshal run task: %w", err)
	}

	t := asynq.NewTask(TaskTypePipelineRun, payload,
		asynq.Queue(QueueRuns),
		asynq.TaskID(run.ID),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue run %s: %w", run.ID, err)
	}
	return nil
}

// EnqueueSimCompletion schedules the DELIVERED update for a simulated order.
func (q *AsynqQueue) EnqueueSimCompletion(ctx context.Context, orderID string, delay time.Duration) error {
	payload, err := json.Marshal(SimCompleteTask{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("failed to marshal completion task: %w", err)
	}

	t := asynq.NewTask(TaskTypeSimComplete, payload,
		asynq.Queue(QueueSim),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue completion for order %s: %w", orderID, err)
	}
	return nil
}

// GetRun loads a run's state from redis, falling back to the task queue for
// runs whose redis key has expired but whose task is still tracked.
func (q *AsynqQueue) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	data, err := q.redis.Get(ctx, runKeyPrefix+runID).Bytes()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get run from redis: %w", err)
	}
	if err == nil {
		var run models.PipelineRun
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		return &run, nil
	}

	info, err := q.inspector.GetTaskInfo(QueueRuns, runID)
	if err != nil {
		return nil, ErrRunNotFound
	}

	run := &models.PipelineRun{ID: runID, Status: models.RunPending}
	switch info.State {
	case asynq.TaskStateActive:
		run.Status = models.RunRunning
	case asynq.TaskStateCompleted:
		run.Status = models.RunCompleted
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		run.Status = models.RunFailed
		run.Error = info.LastErr
	}
	return run, nil
}

// SaveRun persists the run state to redis with a bounded lifetime.
func (q *AsynqQueue) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := q.redis.Set(ctx, runKeyPrefix+run.ID, data, runTTL).Err(); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}
