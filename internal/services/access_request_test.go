package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/events"
	"portal/internal/models"
)

func submit(t *testing.T, f *fixture, email string) *models.AccessRequest {
	t.Helper()
	req, err := f.requests.Submit(context.Background(), SubmitInput{
		Email:     email,
		Name:      "Jane Doe",
		Role:      models.RoleClientViewer,
		CompanyID: f.c1.ID,
	})
	require.NoError(t, err)
	return req
}

func TestAccessRequest_ApproveCreatesUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		mu    sync.Mutex
		codes []events.PasswordCode
	)
	f.bus.On(events.PasswordCodeIssued, func(data interface{}) {
		mu.Lock()
		defer mu.Unlock()
		codes = append(codes, data.(events.PasswordCode))
	})

	req := submit(t, f, "jane@unitslab.io")
	assert.Equal(t, models.AccessRequestPending, req.Status)

	pending, err := f.requests.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	reviewed, err := f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestApproved})
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestApproved, reviewed.Status)
	assert.Equal(t, f.owner.ID, models.Deref(reviewed.ReviewedBy))
	require.NotNil(t, reviewed.ReviewedAt)
	require.NotNil(t, reviewed.CreatedUserID)

	user, err := f.store.Users.GetByEmail(ctx, "jane@unitslab.io")
	require.NoError(t, err)
	assert.Equal(t, *reviewed.CreatedUserID, user.ID)
	assert.Equal(t, models.RoleClientViewer, user.Role)
	assert.Equal(t, f.c1.ID, user.CompanyRef())
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Doe", user.LastName)
	assert.True(t, user.IsActive)

	f.bus.Wait()
	require.Len(t, codes, 1)
	assert.Equal(t, PurposeSetup, codes[0].Purpose)
	require.NoError(t, f.auth.ResetPassword(ctx, codes[0].Code, "firstpass"))
	_, err = f.auth.Login(ctx, "jane@unitslab.io", "firstpass")
	assert.NoError(t, err)

	_, err = f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestDenied})
	assert.ErrorIs(t, err, ErrConflict)

	pending, err = f.requests.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAccessRequest_ApproveWithOverrides(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.requests.Submit(ctx, SubmitInput{Email: "sam@globex.io", Name: "Sam", Role: models.RoleClientViewer})
	require.NoError(t, err)

	_, err = f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestApproved})
	assert.ErrorIs(t, err, ErrValidation, "approval needs a company")

	_, err = f.requests.Review(ctx, f.owner, req.ID, ReviewInput{
		Status:    models.AccessRequestApproved,
		CompanyID: f.c2.ID,
		Role:      models.RoleClientEditor,
	})
	require.NoError(t, err)

	user, err := f.store.Users.GetByEmail(ctx, "sam@globex.io")
	require.NoError(t, err)
	assert.Equal(t, f.c2.ID, user.CompanyRef())
	assert.Equal(t, models.RoleClientEditor, user.Role)
}

func TestAccessRequest_DenyCreatesNoUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := submit(t, f, "nope@unitslab.io")

	reviewed, err := f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestDenied})
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestDenied, reviewed.Status)
	assert.Nil(t, reviewed.CreatedUserID)

	_, err = f.store.Users.GetByEmail(ctx, "nope@unitslab.io")
	assert.Error(t, err)

	_, err = f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestApproved})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAccessRequest_ExistingEmailStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := submit(t, f, f.viewer.Email)

	_, err := f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestApproved})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.store.AccessRequests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestPending, stored.Status)
}

func TestAccessRequest_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.requests.Submit(ctx, SubmitInput{Email: "a@b.io", Name: "A", Role: "superuser"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.requests.Submit(ctx, SubmitInput{Email: "a@b.io", Name: "  ", Role: models.RoleClientViewer})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.requests.Submit(ctx, SubmitInput{Email: "a@b.io", Name: "A", Role: models.RoleClientViewer, CompanyID: "missing"})
	assert.ErrorIs(t, err, ErrValidation)

	req := submit(t, f, "a@b.io")
	_, err = f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestPending})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.requests.Review(ctx, f.owner, "missing", ReviewInput{Status: models.AccessRequestDenied})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccessRequest_ConcurrentReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := submit(t, f, "race@unitslab.io")

	const n = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.requests.Review(ctx, f.owner, req.ID, ReviewInput{Status: models.AccessRequestApproved})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	users, err := f.store.Users.ListByCompany(ctx, f.c1.ID)
	require.NoError(t, err)
	count := 0
	for _, u := range users {
		if u.Email == "race@unitslab.io" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
