package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	// Re-reads the shared Airtable tables into the analytics cache.
	TaskTypeAirtableRefresh = "airtable:refresh"

	// Notification tasks fed by the event bus
	TaskTypeNotifyPasswordCode  = "notify:password_code"
	TaskTypeNotifyAccessRequest = "notify:access_request"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like password codes
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cache refresh
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// PasswordCodePayload announces a reset or account setup code. The code
// only travels sealed; without a sealer the task carries no code at all.
type PasswordCodePayload struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	SealedCode string `json:"sealedCode,omitempty"`
	Purpose    string `json:"purpose"`
}

// AccessRequestPayload announces a submitted or reviewed access request.
type AccessRequestPayload struct {
	RequestID      string `json:"requestId"`
	RequesterEmail string `json:"requesterEmail"`
	RequesterName  string `json:"requesterName"`
	RequestedRole  string `json:"requestedRole"`
	Status         string `json:"status"`
	CreatedUserID  string `json:"createdUserId,omitempty"`
}

func NewAirtableRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAirtableRefresh, nil,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutMedium),
	)
}

func NewPasswordCodeTask(p PasswordCodePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode password code payload: %w", err)
	}
	return asynq.NewTask(TaskTypeNotifyPasswordCode, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
	), nil
}

func NewAccessRequestTask(p AccessRequestPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode access request payload: %w", err)
	}
	return asynq.NewTask(TaskTypeNotifyAccessRequest, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(RetryMax),
		asynq.Timeout(TimeoutShort),
	), nil
}
