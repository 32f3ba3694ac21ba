package aggregation

import (
	"context"
	"sync"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// memProvider is an in-memory CollectionProvider that counts fetches.
type memProvider struct {
	mu          sync.Mutex
	collections map[string][]domain.Document
	fetches     map[string]int
	err         error
}

func newMemProvider(collections map[string][]domain.Document) *memProvider {
	return &memProvider{collections: collections, fetches: make(map[string]int)}
}

func (m *memProvider) FetchAll(ctx context.Context, collName string) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	docs, ok := m.collections[collName]
	if !ok {
		return nil, domain.NotFound("collection %s does not exist", collName)
	}
	m.fetches[collName]++
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	return out, nil
}

func (m *memProvider) Insert(ctx context.Context, collName string, doc domain.Document) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collName] = append(m.collections[collName], doc)
	return doc, nil
}

// indexedProvider additionally answers FindByField for a set of fields.
type indexedProvider struct {
	*memProvider
	indexed map[string]bool
	finds   int
}

func (p *indexedProvider) HasIndex(collName, fieldName string) bool {
	_, ok := p.collections[collName]
	return ok && p.indexed[collName+"."+fieldName]
}

func (p *indexedProvider) FindByField(ctx context.Context, collName, fieldName string, value interface{}) ([]domain.Document, error) {
	p.finds++
	var out []domain.Document
	for _, doc := range p.collections[collName] {
		if Eq(fieldName, value).Matches(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func docs(ds ...domain.Document) []domain.Document { return ds }

func field(ds []domain.Document, name string) []interface{} {
	out := make([]interface{}, len(ds))
	for i, d := range ds {
		out[i] = d[name]
	}
	return out
}
