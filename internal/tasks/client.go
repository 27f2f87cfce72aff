package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"portal/internal/config"
	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/services"
	"portal/internal/utils/logger"
)

// Enqueuer is the part of *asynq.Client the portal uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Sealer encrypts secrets before they are written to the queue.
// *crypto.Keys satisfies it.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
}

// TaskClient enqueues background work.
type TaskClient struct {
	client Enqueuer
	closer func() error
	sealer Sealer
	logger *logger.Logger
}

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	client := asynq.NewClient(redisOpt(cfg))
	return &TaskClient{
		client: client,
		closer: client.Close,
		logger: logger.New("TASKS"),
	}
}

// NewTaskClientWith wraps an existing enqueuer.
func NewTaskClientWith(enq Enqueuer) *TaskClient {
	return &TaskClient{client: enq, logger: logger.New("TASKS")}
}

// WithSealer makes password code tasks carry the sealed code.
func (c *TaskClient) WithSealer(s Sealer) *TaskClient {
	c.sealer = s
	return c
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *TaskClient) Enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	c.logger.Debug("enqueued %s id=%s queue=%s", task.Type(), info.ID, info.Queue)
	return nil
}

// Subscribe turns service events into notification tasks.
func (c *TaskClient) Subscribe(bus *events.EventBus) {
	bus.On(events.PasswordCodeIssued, func(data interface{}) {
		code, ok := data.(events.PasswordCode)
		if !ok {
			return
		}
		task, err := c.passwordCodeTask(code)
		c.enqueueFromEvent(events.PasswordCodeIssued, task, err)
	})
	bus.On(events.AccessRequestSubmitted, func(data interface{}) {
		req, ok := data.(*models.AccessRequest)
		if !ok {
			return
		}
		task, err := NewAccessRequestTask(accessRequestPayload(req, nil))
		c.enqueueFromEvent(events.AccessRequestSubmitted, task, err)
	})
	bus.On(events.AccessRequestReviewed, func(data interface{}) {
		ev, ok := data.(services.ReviewedEvent)
		if !ok || ev.Request == nil {
			return
		}
		task, err := NewAccessRequestTask(accessRequestPayload(ev.Request, ev.User))
		c.enqueueFromEvent(events.AccessRequestReviewed, task, err)
	})
}

func (c *TaskClient) enqueueFromEvent(event string, task *asynq.Task, err error) {
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = c.Enqueue(ctx, task)
	}
	if err != nil {
		_ = c.logger.Error("Failed to enqueue task for "+event, err)
	}
}

func accessRequestPayload(req *models.AccessRequest, user *models.User) AccessRequestPayload {
	p := AccessRequestPayload{
		RequestID:      req.ID,
		RequesterEmail: req.RequesterEmail,
		RequesterName:  req.RequesterName,
		RequestedRole:  string(req.RequestedRole),
		Status:         string(req.Status),
	}
	if user != nil {
		p.CreatedUserID = user.ID
	}
	return p
}

func (c *TaskClient) passwordCodeTask(code events.PasswordCode) (*asynq.Task, error) {
	p := PasswordCodePayload{
		UserID:  code.UserID,
		Email:   code.Email,
		Name:    code.Name,
		Purpose: code.Purpose,
	}
	if c.sealer != nil {
		sealed, err := c.sealer.Encrypt(code.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to seal password code: %w", err)
		}
		p.SealedCode = sealed
	}
	return NewPasswordCodeTask(p)
}
