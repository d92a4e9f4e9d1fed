package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/mkarlsen/userdeck/internal/config"
	"github.com/mkarlsen/userdeck/pkg/logger"
)

const (
	TaskTypeVerificationEmail = "email:verification"
)

// VerificationEmailTask is the payload handed to the email queue when an
// account is registered.
type VerificationEmailTask struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Token    string `json:"token"`
}

// EmailQueue dispatches email tasks without blocking the triggering request.
type EmailQueue interface {
	// Enqueue hands off a task; it never fails the caller's operation.
	Enqueue(task *VerificationEmailTask) error
	// IsAsync returns true if the queue is backed by Redis
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

var (
	globalEmailQueue EmailQueue
	emailQueueOnce   sync.Once
)

// InitEmailQueue initializes the global email queue based on config. With
// Redis enabled tasks go through asynq; otherwise a goroutine-backed sync
// queue handles them in process.
func InitEmailQueue(cfg *config.Config, emailSvc *EmailService) EmailQueue {
	emailQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncEmailQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[EmailQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalEmailQueue = NewSyncEmailQueue(emailSvc)
			} else {
				logger.Infof("[EmailQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalEmailQueue = queue
			}
		} else {
			logger.Infof("[EmailQueue] Sync queue initialized (Redis disabled)")
			globalEmailQueue = NewSyncEmailQueue(emailSvc)
		}
	})
	return globalEmailQueue
}

// GetEmailQueue returns the global email queue instance
func GetEmailQueue() EmailQueue {
	return globalEmailQueue
}

// AsyncEmailQueue implements EmailQueue using asynq (Redis-based)
type AsyncEmailQueue struct {
	client *asynq.Client
}

// NewAsyncEmailQueue creates a new Redis-based async queue
func NewAsyncEmailQueue(cfg *config.RedisConfig) (*AsyncEmailQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncEmailQueue{client: client}, nil
}

// Enqueue adds an email task to the async queue
func (q *AsyncEmailQueue) Enqueue(task *VerificationEmailTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeVerificationEmail, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Infof("[EmailQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncEmailQueue) IsAsync() bool {
	return true
}

func (q *AsyncEmailQueue) Close() error {
	return q.client.Close()
}

// EmailWorker consumes email tasks from Redis and delivers them.
type EmailWorker struct {
	server   *asynq.Server
	emailSvc *EmailService
}

// NewEmailWorker creates a worker bound to the same Redis queue the async
// client enqueues into.
func NewEmailWorker(cfg *config.RedisConfig, emailSvc *EmailService) *EmailWorker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"default": 1},
		},
	)
	return &EmailWorker{server: server, emailSvc: emailSvc}
}

// Start begins consuming tasks in the background.
func (w *EmailWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeVerificationEmail, func(ctx context.Context, t *asynq.Task) error {
		var task VerificationEmailTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return err
		}
		return w.emailSvc.SendVerificationEmail(&task)
	})
	return w.server.Start(mux)
}

// Stop shuts the worker down gracefully.
func (w *EmailWorker) Stop() {
	w.server.Shutdown()
}

// SyncEmailQueue implements EmailQueue without Redis: tasks are processed in
// a goroutine so the triggering request never waits on SMTP.
type SyncEmailQueue struct {
	emailSvc *EmailService
}

// NewSyncEmailQueue creates a new synchronous queue
func NewSyncEmailQueue(emailSvc *EmailService) *SyncEmailQueue {
	return &SyncEmailQueue{emailSvc: emailSvc}
}

// Enqueue processes the task in a background goroutine. Failures are logged
// and swallowed.
func (q *SyncEmailQueue) Enqueue(task *VerificationEmailTask) error {
	go func() {
		if err := q.emailSvc.SendVerificationEmail(task); err != nil {
			logger.Warnf("[EmailQueue] delivery failed for %s: %v", task.Email, err)
		}
	}()
	return nil
}

func (q *SyncEmailQueue) IsAsync() bool {
	return false
}

func (q *SyncEmailQueue) Close() error {
	return nil
}
