package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/adfharrison1/go-analytics/pkg/storage"
)

// MockStorageEngine provides an in-memory Store for handler tests. Setting
// Err makes every call fail with it.
type MockStorageEngine struct {
	mu          sync.RWMutex
	collections map[string][]domain.Document
	order       []string
	insertCalls int
	findCalls   int
	streamCalls int

	Err     error
	PingErr error
}

// NewMockStorageEngine creates a new mock storage engine
func NewMockStorageEngine() *MockStorageEngine {
	return &MockStorageEngine{
		collections: make(map[string][]domain.Document),
	}
}

// Insert adds a document to a collection
func (m *MockStorageEngine) Insert(ctx context.Context, collName string, doc domain.Document) (domain.Document, error) {
	stored, err := m.BatchInsert(ctx, collName, []domain.Document{doc})
	if err != nil {
		return nil, err
	}
	return stored[0], nil
}

// BatchInsert adds documents to a collection, numbering missing ids.
func (m *MockStorageEngine) BatchInsert(ctx context.Context, collName string, docs []domain.Document) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	if m.Err != nil {
		return nil, m.Err
	}

	if _, exists := m.collections[collName]; !exists {
		m.order = append(m.order, collName)
	}
	stored := make([]domain.Document, len(docs))
	for i, doc := range docs {
		p := domain.NormalizeDocument(doc)
		if _, exists := p["_id"]; !exists {
			p["_id"] = fmt.Sprintf("%d", len(m.collections[collName])+1)
		}
		m.collections[collName] = append(m.collections[collName], p)
		stored[i] = p
	}
	return stored, nil
}

// FetchAll returns every document of a collection
func (m *MockStorageEngine) FetchAll(ctx context.Context, collName string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.findCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	docs, exists := m.collections[collName]
	if !exists {
		return nil, domain.NotFound("collection %s does not exist", collName)
	}
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	return out, nil
}

// GetById returns the document with the given id
func (m *MockStorageEngine) GetById(ctx context.Context, collName, docId string) (domain.Document, error) {
	docs, err := m.FetchAll(ctx, collName)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if domain.IDString(doc["_id"]) == docId {
			return doc, nil
		}
	}
	return nil, domain.NotFound("document with id %s not found", docId)
}

// Find returns a page of the documents matching filter
func (m *MockStorageEngine) Find(ctx context.Context, collName string, filter map[string]interface{}, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	matches, err := m.matching(ctx, collName, filter)
	if err != nil {
		return nil, err
	}
	return domain.Paginate(matches, options)
}

// FindStream streams the documents matching filter
func (m *MockStorageEngine) FindStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan domain.Document, error) {
	m.mu.Lock()
	m.streamCalls++
	m.mu.Unlock()

	matches, err := m.matching(ctx, collName, filter)
	if err != nil {
		return nil, err
	}
	out := make(chan domain.Document, len(matches))
	for _, doc := range matches {
		out <- doc
	}
	close(out)
	return out, nil
}

// ListCollections returns collection names in creation order
func (m *MockStorageEngine) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.order...), nil
}

// Ping reports PingErr
func (m *MockStorageEngine) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockStorageEngine) matching(ctx context.Context, collName string, filter map[string]interface{}) ([]domain.Document, error) {
	docs, err := m.FetchAll(ctx, collName)
	if err != nil {
		return nil, err
	}
	var results []domain.Document
	for _, doc := range docs {
		if storage.MatchesFilter(doc, filter) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// GetInsertCalls returns the number of insert calls
func (m *MockStorageEngine) GetInsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.insertCalls
}

// GetStreamCalls returns the number of stream calls
func (m *MockStorageEngine) GetStreamCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streamCalls
}

// GetCollectionCount returns the number of documents in a collection
func (m *MockStorageEngine) GetCollectionCount(collName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collName])
}
