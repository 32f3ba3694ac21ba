package indexing

import (
	"sort"
	"sync"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// IndexEngine keeps equality indexes for the collections of a store.
type IndexEngine struct {
	mu      sync.RWMutex
	indexes map[string]map[string]*Index // Collection name -> field name -> index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]map[string]*Index),
	}
}

// Index maps the join keys of a field's values to document positions.
// Collections are append-only, so positions stay valid and are kept in
// ascending order.
type Index struct {
	Field    string
	Inverted map[string][]int
}

// NewIndex creates an index on a specific field.
func NewIndex(field string) *Index {
	return &Index{
		Field:    field,
		Inverted: make(map[string][]int),
	}
}

// BuildIndex indexes all documents in a collection by the specified field.
func (idx *Index) BuildIndex(collection *domain.Collection) {
	idx.Inverted = make(map[string][]int)
	for pos, doc := range collection.Documents {
		idx.Add(pos, doc)
	}
}

// Add indexes the document stored at pos. A missing field is indexed as
// null and a list is indexed as a whole and element by element.
func (idx *Index) Add(pos int, doc domain.Document) {
	val, found := domain.Lookup(doc, idx.Field)
	for _, key := range domain.JoinKeys(val, found) {
		positions := idx.Inverted[key]
		if n := len(positions); n > 0 && positions[n-1] == pos {
			continue
		}
		idx.Inverted[key] = append(positions, pos)
	}
}

// Query returns the positions of documents whose field equals value.
func (idx *Index) Query(value interface{}) []int {
	return idx.Inverted[domain.CanonicalKey(domain.Normalize(value))]
}

// CreateIndex creates an index on a specific field in a collection
func (ie *IndexEngine) CreateIndex(collectionName, fieldName string) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if fieldName == "" {
		return domain.Validation("index field name is empty")
	}
	if ie.indexes[collectionName] == nil {
		ie.indexes[collectionName] = make(map[string]*Index)
	}
	if _, exists := ie.indexes[collectionName][fieldName]; exists {
		return domain.Validation("index on field %s already exists in collection %s", fieldName, collectionName)
	}

	ie.indexes[collectionName][fieldName] = NewIndex(fieldName)
	return nil
}

// DropIndex removes an index from a collection
func (ie *IndexEngine) DropIndex(collectionName, fieldName string) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if _, exists := ie.indexes[collectionName][fieldName]; !exists {
		return domain.NotFound("index on field %s does not exist in collection %s", fieldName, collectionName)
	}
	delete(ie.indexes[collectionName], fieldName)
	return nil
}

// GetIndexes returns the indexed field names of a collection, sorted.
func (ie *IndexEngine) GetIndexes(collectionName string) ([]string, error) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	indexNames := make([]string, 0, len(ie.indexes[collectionName]))
	for fieldName := range ie.indexes[collectionName] {
		indexNames = append(indexNames, fieldName)
	}
	sort.Strings(indexNames)
	return indexNames, nil
}

// HasIndex reports whether fieldName is indexed in the collection.
func (ie *IndexEngine) HasIndex(collectionName, fieldName string) bool {
	_, ok := ie.GetIndex(collectionName, fieldName)
	return ok
}

// GetIndex returns the index for a field of a collection.
func (ie *IndexEngine) GetIndex(collectionName, fieldName string) (*Index, bool) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	index, exists := ie.indexes[collectionName][fieldName]
	return index, exists
}

// Lookup returns the positions matching value in an indexed field.
func (ie *IndexEngine) Lookup(collectionName, fieldName string, value interface{}) ([]int, error) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	index, exists := ie.indexes[collectionName][fieldName]
	if !exists {
		return nil, domain.NotFound("index on field %s does not exist in collection %s", fieldName, collectionName)
	}
	positions := index.Query(value)
	out := make([]int, len(positions))
	copy(out, positions)
	return out, nil
}

// BuildIndexForCollection (re)builds an index for a specific collection
func (ie *IndexEngine) BuildIndexForCollection(collectionName, fieldName string, collection *domain.Collection) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.indexes[collectionName] == nil {
		ie.indexes[collectionName] = make(map[string]*Index)
	}
	index, exists := ie.indexes[collectionName][fieldName]
	if !exists {
		index = NewIndex(fieldName)
		ie.indexes[collectionName][fieldName] = index
	}
	index.BuildIndex(collection)
	return nil
}

// RebuildCollection rebuilds every index of a collection, used after the
// collection is loaded from disk.
func (ie *IndexEngine) RebuildCollection(collectionName string, collection *domain.Collection) {
	ie.mu.Lock()
	defer ie.mu.Unlock()
	for _, index := range ie.indexes[collectionName] {
		index.BuildIndex(collection)
	}
}

// IndexDocument adds an appended document to every index of the collection.
func (ie *IndexEngine) IndexDocument(collectionName string, pos int, doc domain.Document) {
	ie.mu.Lock()
	defer ie.mu.Unlock()
	for _, index := range ie.indexes[collectionName] {
		index.Add(pos, doc)
	}
}
