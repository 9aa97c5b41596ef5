// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tasker/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
// Tasks are kept newest first, like the real service returns them.
type FakeService struct {
	mu     sync.RWMutex
	user   service.User
	tasks  []service.Task
	nextID int64
	calls  []string

	// Accounts maps email to password for Login and Signup.
	Accounts map[string]string

	// Token is returned by a successful Login.
	Token string

	// Now stamps created tasks.
	Now time.Time

	// Error injection for testing
	SignupErr       error
	LoginErr        error
	MeErr           error
	ListTasksErr    error
	CreateTaskErr   error
	CompleteTaskErr error
	EditTaskErr     error
}

// NewFakeService creates a new FakeService with one account,
// a@b.com / secret, whose Login returns "tok123".
func NewFakeService() *FakeService {
	return &FakeService{
		user:     service.User{ID: 1, Email: "a@b.com", FullName: "Ada"},
		nextID:   1,
		Accounts: map[string]string{"a@b.com": "secret"},
		Token:    "tok123",
		Now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddTask appends a task to the end of the list (oldest position).
func (f *FakeService) AddTask(title string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:          f.nextID,
		Title:       title,
		IsCompleted: completed,
		CreatedAt:   service.Timestamp{Time: f.Now},
		OwnerID:     f.user.ID,
	}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns the names of the operations that reached the fake backend.
// Calls rejected by local validation are not recorded.
func (f *FakeService) Calls() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeService) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

// Signup implements service.Service.
func (f *FakeService) Signup(ctx context.Context, creds service.Credentials) (service.User, error) {
	if err := service.ValidateCredentials(creds); err != nil {
		return service.User{}, err
	}
	f.record("Signup")
	if f.SignupErr != nil {
		return service.User{}, f.SignupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.Accounts[creds.Email]; exists {
		return service.User{}, fmt.Errorf("%w: 400 Email already registered", service.ErrNetwork)
	}
	f.Accounts[creds.Email] = creds.Password
	f.user = service.User{ID: f.user.ID + 1, Email: creds.Email, FullName: creds.FullName}
	return f.user, nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (string, error) {
	if err := service.ValidateCredentials(creds); err != nil {
		return "", err
	}
	f.record("Login")
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pw, ok := f.Accounts[creds.Email]; !ok || pw != creds.Password {
		return "", fmt.Errorf("%w: Invalid email or password", service.ErrAuth)
	}
	return f.Token, nil
}

// Me implements service.Service.
func (f *FakeService) Me(ctx context.Context) (service.User, error) {
	f.record("Me")
	if f.MeErr != nil {
		return service.User{}, f.MeErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.user, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.record("ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, title string) (service.Task, error) {
	title, err := service.NormalizeTitle(title)
	if err != nil {
		return service.Task{}, err
	}
	f.record("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        f.nextID,
		Title:     title,
		CreatedAt: service.Timestamp{Time: f.Now},
		OwnerID:   f.user.ID,
	}
	f.nextID++
	f.tasks = append([]service.Task{t}, f.tasks...)
	return t, nil
}

// CompleteTask implements service.Service.
func (f *FakeService) CompleteTask(ctx context.Context, id int64) (service.Task, error) {
	f.record("CompleteTask")
	if f.CompleteTaskErr != nil {
		return service.Task{}, f.CompleteTaskErr
	}
	return f.update(id, func(t *service.Task) { t.IsCompleted = true })
}

// EditTask implements service.Service.
func (f *FakeService) EditTask(ctx context.Context, id int64, title string) (service.Task, error) {
	title, err := service.NormalizeTitle(title)
	if err != nil {
		return service.Task{}, err
	}
	f.record("EditTask")
	if f.EditTaskErr != nil {
		return service.Task{}, f.EditTaskErr
	}
	return f.update(id, func(t *service.Task) { t.Title = title })
}

func (f *FakeService) update(id int64, apply func(*service.Task)) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			apply(&f.tasks[i])
			return f.tasks[i], nil
		}
	}
	return service.Task{}, fmt.Errorf("%w: %w: Todo not found", service.ErrNetwork, service.ErrNotFound)
}
