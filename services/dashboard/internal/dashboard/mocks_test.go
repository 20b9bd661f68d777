package dashboard

import (
	"context"
	"sync"

	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
)

type mutateCall struct {
	Resource string
	Action   string
	ID       string
	Fields   map[string]interface{}
	Session  posapi.Session
}

// MockBackend implements Backend for testing
type MockBackend struct {
	ListFunc   func(ctx context.Context, sess posapi.Session, resource string) (normalize.Result, error)
	MutateFunc func(ctx context.Context, sess posapi.Session, resource, action, id string, fields map[string]interface{}) (normalize.Result, error)

	mu    sync.Mutex
	lists int
	calls []mutateCall
}

func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) List(ctx context.Context, sess posapi.Session, resource string) (normalize.Result, error) {
	m.mu.Lock()
	m.lists++
	m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc(ctx, sess, resource)
	}
	return normalize.Result{Items: []normalize.Record{}, MatchedPath: normalize.PathRoot}, nil
}

func (m *MockBackend) Mutate(ctx context.Context, sess posapi.Session, resource, action, id string, fields map[string]interface{}) (normalize.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mutateCall{Resource: resource, Action: action, ID: id, Fields: fields, Session: sess})
	m.mu.Unlock()
	if m.MutateFunc != nil {
		return m.MutateFunc(ctx, sess, resource, action, id, fields)
	}
	return normalize.Result{Items: []normalize.Record{}, EmptySuccess: true}, nil
}

func (m *MockBackend) ListCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

func (m *MockBackend) MutateCalls() []mutateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mutateCall, len(m.calls))
	copy(out, m.calls)
	return out
}

type updateLog struct {
	mu      sync.Mutex
	updates []event.Update
}

func (l *updateLog) record(u event.Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, u)
}

func (l *updateLog) all() []event.Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event.Update, len(l.updates))
	copy(out, l.updates)
	return out
}
