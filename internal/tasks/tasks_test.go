package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/services"
	"portal/internal/utils/logger"
)

func TestMain(m *testing.M) {
	logger.SetLevel("silent")
	os.Exit(m.Run())
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: QueueDefault}, nil
}

func (r *recordingEnqueuer) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = t.Type()
	}
	return out
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return f.err
}

type fakeNotifier struct {
	codes    []PasswordCodePayload
	requests []AccessRequestPayload
}

func (f *fakeNotifier) PasswordCode(_ context.Context, p PasswordCodePayload) error {
	f.codes = append(f.codes, p)
	return nil
}

func (f *fakeNotifier) AccessRequest(_ context.Context, p AccessRequestPayload) error {
	f.requests = append(f.requests, p)
	return nil
}

func TestSubscribe_EnqueuesNotifications(t *testing.T) {
	bus := events.NewEventBus()
	enq := &recordingEnqueuer{}
	NewTaskClientWith(enq).Subscribe(bus)

	req := &models.AccessRequest{
		RequesterEmail: "a@b.com",
		RequesterName:  "A B",
		RequestedRole:  models.RoleClientViewer,
		Status:         models.AccessRequestPending,
	}
	req.ID = "req-1"
	bus.Emit(events.AccessRequestSubmitted, req)
	bus.Emit(events.PasswordCodeIssued, events.PasswordCode{UserID: "u1", Email: "a@b.com", Code: "Zq81secret", Purpose: "setup"})
	bus.Emit(events.AccessRequestReviewed, services.ReviewedEvent{Request: req, User: &models.User{Base: models.Base{ID: "u1"}}})
	bus.Emit(events.AccessRequestSubmitted, "not a request")
	bus.Wait()

	assert.ElementsMatch(t, []string{
		TaskTypeNotifyAccessRequest,
		TaskTypeNotifyPasswordCode,
		TaskTypeNotifyAccessRequest,
	}, enq.types())

	for _, task := range enq.tasks {
		if task.Type() != TaskTypeNotifyPasswordCode {
			continue
		}
		assert.NotContains(t, string(task.Payload()), "Zq81secret")
		var p PasswordCodePayload
		require.NoError(t, json.Unmarshal(task.Payload(), &p))
		assert.Equal(t, PasswordCodePayload{UserID: "u1", Email: "a@b.com", Purpose: "setup"}, p)
	}
}

type reverseSealer struct{ err error }

func (s reverseSealer) Encrypt(plaintext string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b := []byte(plaintext)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return "sealed:" + string(b), nil
}

func TestSubscribe_SealsPasswordCode(t *testing.T) {
	bus := events.NewEventBus()
	enq := &recordingEnqueuer{}
	NewTaskClientWith(enq).WithSealer(reverseSealer{}).Subscribe(bus)

	bus.Emit(events.PasswordCodeIssued, events.PasswordCode{UserID: "u1", Email: "a@b.com", Code: "Zq81secret", Purpose: "reset"})
	bus.Wait()

	require.Len(t, enq.tasks, 1)
	assert.NotContains(t, string(enq.tasks[0].Payload()), "Zq81secret")
	var p PasswordCodePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &p))
	assert.Equal(t, "sealed:terces18qZ", p.SealedCode)
}

func TestSubscribe_SealFailureSkipsTask(t *testing.T) {
	bus := events.NewEventBus()
	enq := &recordingEnqueuer{}
	NewTaskClientWith(enq).WithSealer(reverseSealer{err: errors.New("no key")}).Subscribe(bus)

	bus.Emit(events.PasswordCodeIssued, events.PasswordCode{UserID: "u1", Code: "Zq81secret"})
	bus.Wait()
	assert.Empty(t, enq.types())
}

func TestSubscribe_EnqueueFailureIsSwallowed(t *testing.T) {
	bus := events.NewEventBus()
	enq := &recordingEnqueuer{err: errors.New("redis down")}
	NewTaskClientWith(enq).Subscribe(bus)

	bus.Emit(events.PasswordCodeIssued, events.PasswordCode{UserID: "u1", Code: "abc"})
	bus.Wait()
	assert.Empty(t, enq.types())
}

func TestHandlers(t *testing.T) {
	refresher := &fakeRefresher{}
	notifier := &fakeNotifier{}
	mux := asynq.NewServeMux()
	NewTaskHandler(refresher, notifier).Register(mux)
	ctx := context.Background()

	require.NoError(t, mux.ProcessTask(ctx, NewAirtableRefreshTask()))
	assert.Equal(t, 1, refresher.calls)

	refresher.err = errors.New("airtable 503")
	assert.Error(t, mux.ProcessTask(ctx, NewAirtableRefreshTask()))

	task, err := NewPasswordCodeTask(PasswordCodePayload{Email: "a@b.com", SealedCode: "sealed:zyx", Purpose: "reset"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, task))
	require.Len(t, notifier.codes, 1)
	assert.Equal(t, "sealed:zyx", notifier.codes[0].SealedCode)

	task, err = NewAccessRequestTask(AccessRequestPayload{RequestID: "r1", Status: "approved", CreatedUserID: "u9"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, task))
	require.Len(t, notifier.requests, 1)
	assert.Equal(t, "u9", notifier.requests[0].CreatedUserID)

	err = mux.ProcessTask(ctx, asynq.NewTask(TaskTypeNotifyPasswordCode, []byte("{broken")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlers_NoAnalytics(t *testing.T) {
	h := NewTaskHandler(nil, NewLogNotifier())
	assert.NoError(t, h.HandleAirtableRefresh(context.Background(), NewAirtableRefreshTask()))
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier()
	assert.NoError(t, n.PasswordCode(context.Background(), PasswordCodePayload{Email: "a@b.com", SealedCode: "sealed:zyx", Purpose: "reset"}))
	assert.NoError(t, n.AccessRequest(context.Background(), AccessRequestPayload{Status: "pending"}))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2025, 1, 1, 10, 7, 0, 0, time.UTC)
	next, err := NextRun("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 15, 0, 0, time.UTC), next)

	_, err = NextRun("every now and then", from)
	assert.Error(t, err)
}

func TestTaskOptions(t *testing.T) {
	task, err := NewAccessRequestTask(AccessRequestPayload{RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeNotifyAccessRequest, task.Type())
	assert.Contains(t, string(task.Payload()), `"requestId":"r1"`)
}
