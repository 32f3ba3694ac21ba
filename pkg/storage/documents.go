package storage

import (
	"context"
	"sort"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Insert appends a document to a collection, creating the collection when
// needed. A missing _id is generated. The stored document is returned.
func (se *StorageEngine) Insert(ctx context.Context, collName string, doc domain.Document) (domain.Document, error) {
	stored, err := se.BatchInsert(ctx, collName, []domain.Document{doc})
	if err != nil {
		return nil, err
	}
	return stored[0], nil
}

// BatchInsert appends documents in order. Either every document is stored
// or none is.
func (se *StorageEngine) BatchInsert(ctx context.Context, collName string, docs []domain.Document) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCollectionName(collName); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.Validation("no documents to insert")
	}

	prepared := make([]domain.Document, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, domain.Validation("document %d is empty", i)
		}
		p := domain.NormalizeDocument(doc)
		if _, ok := p["_id"]; !ok || p["_id"] == nil {
			p["_id"] = uuid.NewString()
		}
		id := domain.IDString(p["_id"])
		if _, dup := seen[id]; dup {
			return nil, domain.Validation("duplicate _id %s in batch", id)
		}
		seen[id] = struct{}{}
		prepared[i] = p
	}

	se.mu.Lock()
	collection, err := se.getCollectionInternal(collName)
	if domain.IsKind(err, domain.KindNotFound) {
		collection, err = se.createCollectionInternal(collName), nil
	}
	if err != nil {
		se.mu.Unlock()
		return nil, err
	}

	for _, p := range prepared {
		id := domain.IDString(p["_id"])
		if _, exists := collection.Get(id); exists {
			se.mu.Unlock()
			return nil, domain.Validation("document with id %s already exists in collection %s", id, collName)
		}
	}

	for _, p := range prepared {
		collection.Append(p)
		se.indexEngine.IndexDocument(collName, collection.Len()-1, p)
	}
	se.markDirty(collName, int64(len(prepared)))
	se.mu.Unlock()

	if err := se.SaveCollectionAfterTransaction(collName); err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Transaction save failed")
	}

	out := make([]domain.Document, len(prepared))
	for i, p := range prepared {
		out[i] = p.Clone()
	}
	return out, nil
}

// markDirty records a change to a collection. The caller must hold se.mu
// for writing.
func (se *StorageEngine) markDirty(collName string, added int64) {
	if info, exists := se.collections[collName]; exists {
		info.State = CollectionStateDirty
		info.DocumentCount += added
		info.LastModified = time.Now()
		info.Version++
	}
}

// FetchAll returns every document of a collection in insertion order.
func (se *StorageEngine) FetchAll(ctx context.Context, collName string) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []domain.Document
	err := se.withCollection(collName, func(collection *domain.Collection) error {
		docs = collection.Snapshot()
		return nil
	})
	return docs, err
}

// GetById retrieves a specific document by its ID
func (se *StorageEngine) GetById(ctx context.Context, collName, docId string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc domain.Document
	err := se.withCollection(collName, func(collection *domain.Collection) error {
		found, exists := collection.Get(docId)
		if !exists {
			return domain.NotFound("document with id %s not found in collection %s", docId, collName)
		}
		doc = found.Clone()
		return nil
	})
	return doc, err
}

// Find returns the documents matching an equality filter, in insertion
// order, paginated by options. A nil or empty filter matches everything.
func (se *StorageEngine) Find(ctx context.Context, collName string, filter map[string]interface{}, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	if options == nil {
		options = domain.DefaultPaginationOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	docs, err := se.collectMatches(ctx, collName, filter)
	if err != nil {
		return nil, err
	}
	return domain.Paginate(docs, options)
}

// collectMatches scans the collection, or only the candidates of indexed
// filter fields.
func (se *StorageEngine) collectMatches(ctx context.Context, collName string, filter map[string]interface{}) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var matches []domain.Document
	err := se.withCollection(collName, func(collection *domain.Collection) error {
		candidates, useIndex := se.optimizeWithIndexes(collName, filter)
		if useIndex {
			for _, pos := range candidates {
				if doc := collection.Documents[pos]; MatchesFilter(doc, filter) {
					matches = append(matches, doc)
				}
			}
			return nil
		}
		for i, doc := range collection.Documents {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if len(filter) == 0 || MatchesFilter(doc, filter) {
				matches = append(matches, doc)
			}
		}
		return nil
	})
	return matches, err
}

// optimizeWithIndexes attempts to use available indexes to optimize the query.
// Returns sorted candidate positions and whether index optimization was used.
func (se *StorageEngine) optimizeWithIndexes(collName string, filter map[string]interface{}) ([]int, bool) {
	var indexResults [][]int

	for fieldName, expectedValue := range filter {
		if _, isString := expectedValue.(string); isString {
			// String filters match case-insensitively, which the index cannot answer.
			continue
		}
		positions, err := se.indexEngine.Lookup(collName, fieldName, expectedValue)
		if err == nil {
			indexResults = append(indexResults, positions)
		}
	}

	if len(indexResults) == 0 {
		return nil, false
	}

	candidates := IntersectPositions(indexResults...)
	sort.Ints(candidates)
	return candidates, true
}
