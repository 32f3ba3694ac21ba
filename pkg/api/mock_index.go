package api

import (
	"sort"
	"sync"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// MockIndexEngine provides a mock implementation of domain.IndexManager for testing
type MockIndexEngine struct {
	mu      sync.Mutex
	indexes map[string]map[string]bool
	Err     error
}

// NewMockIndexEngine creates a new mock index engine
func NewMockIndexEngine() *MockIndexEngine {
	return &MockIndexEngine{indexes: make(map[string]map[string]bool)}
}

// CreateIndex records an index
func (m *MockIndexEngine) CreateIndex(collName, fieldName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.indexes[collName] == nil {
		m.indexes[collName] = make(map[string]bool)
	}
	if m.indexes[collName][fieldName] {
		return domain.Validation("index on %s already exists", fieldName)
	}
	m.indexes[collName][fieldName] = true
	return nil
}

// DropIndex forgets an index
func (m *MockIndexEngine) DropIndex(collName, fieldName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.indexes[collName][fieldName] {
		return domain.NotFound("index on %s does not exist", fieldName)
	}
	delete(m.indexes[collName], fieldName)
	return nil
}

// GetIndexes returns the recorded indexes of a collection, sorted
func (m *MockIndexEngine) GetIndexes(collName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	fields := make([]string, 0, len(m.indexes[collName]))
	for field := range m.indexes[collName] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields, nil
}
