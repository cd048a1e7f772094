package automation

import (
	"context"
	"sync"
)

// mockRepository is an in-memory Repository for tests.
type mockRepository struct {
	mu          sync.Mutex
	automations map[string]*Automation
	executions  map[string]*Execution
	createErr   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		automations: make(map[string]*Automation),
		executions:  make(map[string]*Execution),
	}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.automations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.DeepCopy(), nil
}

func (m *mockRepository) GetBySlug(_ context.Context, slug string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.automations {
		if a.Slug == slug {
			return a.DeepCopy(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) List(_ context.Context) ([]Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Automation
	for _, a := range m.automations {
		out = append(out, *a.DeepCopy())
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, a *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.automations[a.ID]; exists {
		return ErrExists
	}
	m.automations[a.ID] = a.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, a *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.automations[a.ID]; !exists {
		return ErrNotFound
	}
	m.automations[a.ID] = a.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.automations[id]; !exists {
		return ErrNotFound
	}
	delete(m.automations, id)
	return nil
}

func (m *mockRepository) CreateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := *exec
	m.executions[exec.ID] = &cpy
	return nil
}

func (m *mockRepository) UpdateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.executions[exec.ID]; !exists {
		return ErrExecutionNotFound
	}
	cpy := *exec
	m.executions[exec.ID] = &cpy
	return nil
}

func (m *mockRepository) GetExecution(_ context.Context, id string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	cpy := *exec
	return &cpy, nil
}

func (m *mockRepository) ListExecutions(_ context.Context, automationID string, _ int) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Execution
	for _, exec := range m.executions {
		if exec.AutomationID == automationID {
			out = append(out, *exec)
		}
	}
	return out, nil
}
