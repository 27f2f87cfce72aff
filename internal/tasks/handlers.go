package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"portal/internal/utils/logger"
)

// Refresher reloads the analytics cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier delivers messages to people outside the portal.
type Notifier interface {
	PasswordCode(ctx context.Context, p PasswordCodePayload) error
	AccessRequest(ctx context.Context, p AccessRequestPayload) error
}

// TaskHandler processes the portal's background tasks.
type TaskHandler struct {
	analytics Refresher
	notifier  Notifier
	logger    *logger.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(analytics Refresher, notifier Notifier) *TaskHandler {
	return &TaskHandler{
		analytics: analytics,
		notifier:  notifier,
		logger:    logger.New("task_handler"),
	}
}

// Register binds every task type to its handler.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeAirtableRefresh, h.HandleAirtableRefresh)
	mux.HandleFunc(TaskTypeNotifyPasswordCode, h.HandlePasswordCode)
	mux.HandleFunc(TaskTypeNotifyAccessRequest, h.HandleAccessRequest)
}

func (h *TaskHandler) HandleAirtableRefresh(ctx context.Context, t *asynq.Task) error {
	if h.analytics == nil {
		return nil
	}
	if err := h.analytics.Refresh(ctx); err != nil {
		return h.logger.Error("Airtable refresh failed", err)
	}
	h.logger.Success("Airtable cache refreshed")
	return nil
}

func (h *TaskHandler) HandlePasswordCode(ctx context.Context, t *asynq.Task) error {
	var p PasswordCodePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid password code payload: %v: %w", err, asynq.SkipRetry)
	}
	return h.notifier.PasswordCode(ctx, p)
}

func (h *TaskHandler) HandleAccessRequest(ctx context.Context, t *asynq.Task) error {
	var p AccessRequestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid access request payload: %v: %w", err, asynq.SkipRetry)
	}
	return h.notifier.AccessRequest(ctx, p)
}

// LogNotifier writes notifications to the log. It records that a code was
// issued, never the code.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logger.New("notify")}
}

func (n *LogNotifier) PasswordCode(_ context.Context, p PasswordCodePayload) error {
	n.logger.Info("%s code issued for %s <%s>", p.Purpose, p.Name, p.Email)
	return nil
}

func (n *LogNotifier) AccessRequest(_ context.Context, p AccessRequestPayload) error {
	switch p.Status {
	case "pending":
		n.logger.Info("Access request %s from %s <%s> for role %s awaits review", p.RequestID, p.RequesterName, p.RequesterEmail, p.RequestedRole)
	default:
		n.logger.Info("Access request %s for %s was %s", p.RequestID, p.RequesterEmail, p.Status)
	}
	return nil
}

