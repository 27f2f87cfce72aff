// Package memory is a process-local Store used by tests and by
// STORE_DRIVER=memory for demos. All state lives behind one mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"portal/internal/models"
	"portal/internal/repository"
)

type db struct {
	mu             sync.RWMutex
	users          map[string]models.User
	companies      map[string]models.Company
	projects       map[string]models.Project
	audits         map[string]models.DigitalAudit
	accessRequests map[string]models.AccessRequest
	activity       []models.ActivityLog
	files          map[string]models.File
	resets         map[string]models.PasswordReset
}

// NewStore returns an empty in-memory store.
func NewStore() *repository.Store {
	d := &db{
		users:          map[string]models.User{},
		companies:      map[string]models.Company{},
		projects:       map[string]models.Project{},
		audits:         map[string]models.DigitalAudit{},
		accessRequests: map[string]models.AccessRequest{},
		files:          map[string]models.File{},
		resets:         map[string]models.PasswordReset{},
	}
	return &repository.Store{
		Users:          &userRepo{d},
		Companies:      &companyRepo{d},
		Projects:       &projectRepo{d},
		Audits:         &auditRepo{d},
		AccessRequests: &accessRequestRepo{d},
		Activity:       &activityRepo{d},
		Files:          &fileRepo{d},
		PasswordResets: &resetRepo{d},
	}
}

func stamp(b *models.Base) {
	b.EnsureID()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func byCreated[T any](items []T, created func(T) time.Time, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return created(items[i]).After(created(items[j]))
		}
		return created(items[i]).Before(created(items[j]))
	})
}

// users

type userRepo struct{ d *db }

func (r *userRepo) emailTaken(email, exceptID string) bool {
	for _, u := range r.d.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *userRepo) insert(user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if r.emailTaken(user.Email, "") {
		return repository.ErrDuplicate
	}
	stamp(&user.Base)
	stored := *user
	stored.Company = nil
	r.d.users[user.ID] = stored
	return nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.insert(user)
}

func (r *userRepo) withCompany(u models.User) *models.User {
	if u.CompanyID != nil {
		if c, ok := r.d.companies[*u.CompanyID]; ok {
			u.Company = &c
		}
	}
	return &u
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withCompany(u), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.users {
		if u.Email == email {
			return r.withCompany(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) ListByCompany(ctx context.Context, companyID string) ([]models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.User{}
	for _, u := range r.d.users {
		if u.CompanyRef() == companyID {
			out = append(out, u)
		}
	}
	byCreated(out, func(u models.User) time.Time { return u.CreatedAt }, false)
	return out, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.Email = models.NormalizeEmail(user.Email)
	if r.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicate
	}
	user.UpdatedAt = time.Now().UTC()
	stored := *user
	stored.Company = nil
	r.d.users[user.ID] = stored
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	u, ok := r.d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.d.users[id] = u
	return nil
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	u, ok := r.d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	r.d.users[id] = u
	return nil
}

func (r *userRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var n int64
	for _, u := range r.d.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// companies

type companyRepo struct{ d *db }

func (r *companyRepo) Create(ctx context.Context, company *models.Company) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stamp(&company.Base)
	stored := *company
	stored.Parent = nil
	r.d.companies[company.ID] = stored
	return nil
}

func (r *companyRepo) GetByID(ctx context.Context, id string) (*models.Company, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *companyRepo) ListByType(ctx context.Context, companyType models.CompanyType) ([]models.Company, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Company{}
	for _, c := range r.d.companies {
		if companyType == "" || c.Type == companyType {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *companyRepo) Update(ctx context.Context, company *models.Company) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.companies[company.ID]; !ok {
		return repository.ErrNotFound
	}
	company.UpdatedAt = time.Now().UTC()
	stored := *company
	stored.Parent = nil
	r.d.companies[company.ID] = stored
	return nil
}

// projects

type projectRepo struct{ d *db }

func (r *projectRepo) Create(ctx context.Context, project *models.Project) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stamp(&project.Base)
	stored := *project
	stored.Company = nil
	r.d.projects[project.ID] = stored
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c, ok := r.d.companies[p.CompanyID]; ok {
		p.Company = &c
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Project{}
	for _, p := range r.d.projects {
		if filter.CompanyID != "" && p.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if c, ok := r.d.companies[p.CompanyID]; ok {
			p.Company = &c
		}
		out = append(out, p)
	}
	byCreated(out, func(p models.Project) time.Time { return p.CreatedAt }, true)
	return out, nil
}

// audits

type auditRepo struct{ d *db }

func (r *auditRepo) Create(ctx context.Context, audit *models.DigitalAudit) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stamp(&audit.Base)
	r.d.audits[audit.ID] = *audit
	return nil
}

func (r *auditRepo) ListByClients(ctx context.Context, companyIDs []string) ([]models.DigitalAudit, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	want := make(map[string]bool, len(companyIDs))
	for _, id := range companyIDs {
		want[id] = true
	}
	out := []models.DigitalAudit{}
	for _, a := range r.d.audits {
		if companyIDs == nil || want[a.ClientCompanyID] {
			out = append(out, a)
		}
	}
	byCreated(out, func(a models.DigitalAudit) time.Time { return a.CreatedAt }, true)
	return out, nil
}

// access requests

type accessRequestRepo struct{ d *db }

func (r *accessRequestRepo) Create(ctx context.Context, req *models.AccessRequest) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	req.RequesterEmail = models.NormalizeEmail(req.RequesterEmail)
	if req.Status == "" {
		req.Status = models.AccessRequestPending
	}
	stamp(&req.Base)
	r.d.accessRequests[req.ID] = *req
	return nil
}

func (r *accessRequestRepo) GetByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	req, ok := r.d.accessRequests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r *accessRequestRepo) ListByStatus(ctx context.Context, status models.AccessRequestStatus) ([]models.AccessRequest, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.AccessRequest{}
	for _, req := range r.d.accessRequests {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	byCreated(out, func(a models.AccessRequest) time.Time { return a.CreatedAt }, true)
	return out, nil
}

// Review holds the write lock for the whole transition so two concurrent
// reviews of one request cannot both observe it pending.
func (r *accessRequestRepo) Review(ctx context.Context, id string, review repository.Review, newUser *models.User) (*models.AccessRequest, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	req, ok := r.d.accessRequests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Status != models.AccessRequestPending {
		return nil, repository.ErrNotPending
	}
	if newUser != nil {
		users := &userRepo{r.d}
		if err := users.insert(newUser); err != nil {
			return nil, err
		}
		req.CreatedUserID = &newUser.ID
	}
	reviewedAt := review.ReviewedAt
	req.Status = review.Status
	req.ReviewedBy = &review.ReviewedBy
	req.ReviewedAt = &reviewedAt
	req.UpdatedAt = time.Now().UTC()
	r.d.accessRequests[id] = req
	return &req, nil
}

// activity

type activityRepo struct{ d *db }

func (r *activityRepo) Append(ctx context.Context, entry *models.ActivityLog) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	entry.Prepare()
	r.d.activity = append(r.d.activity, *entry)
	return nil
}

func (r *activityRepo) List(ctx context.Context, filter repository.ActivityFilter) ([]models.ActivityLog, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.ActivityLog{}
	for i := len(r.d.activity) - 1; i >= 0; i-- {
		e := r.d.activity[i]
		if filter.ActorUserID != "" && e.ActorUserID != filter.ActorUserID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// files

type fileRepo struct{ d *db }

func (r *fileRepo) Create(ctx context.Context, file *models.File) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stamp(&file.Base)
	stored := *file
	stored.SignedURL = ""
	r.d.files[file.ID] = stored
	return nil
}

func (r *fileRepo) ListByCompany(ctx context.Context, companyID string) ([]models.File, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.File{}
	for _, f := range r.d.files {
		if f.CompanyID == companyID {
			out = append(out, f)
		}
	}
	byCreated(out, func(f models.File) time.Time { return f.CreatedAt }, true)
	for i := range out {
		if err := out[i].Sign(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// password resets

type resetRepo struct{ d *db }

func (r *resetRepo) Create(ctx context.Context, reset *models.PasswordReset) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stamp(&reset.Base)
	stored := *reset
	stored.User = nil
	r.d.resets[reset.ID] = stored
	return nil
}

func (r *resetRepo) Consume(ctx context.Context, codeHash string, now time.Time) (*models.PasswordReset, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, reset := range r.d.resets {
		if reset.CodeHash != codeHash || reset.Used || !now.Before(reset.ExpiresAt) {
			continue
		}
		reset.Used = true
		r.d.resets[id] = reset
		return &reset, nil
	}
	return nil, repository.ErrNotFound
}
