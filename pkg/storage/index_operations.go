package storage

import (
	"context"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// CreateIndex creates an index on a specific field in a collection
func (se *StorageEngine) CreateIndex(collName, fieldName string) error {
	se.mu.Lock()
	defer se.mu.Unlock()
	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return err
	}
	if err := se.indexEngine.CreateIndex(collName, fieldName); err != nil {
		return err
	}
	if err := se.indexEngine.BuildIndexForCollection(collName, fieldName, collection); err != nil {
		return err
	}
	// The index list is part of the snapshot.
	se.markDirty(collName, 0)
	return nil
}

// DropIndex removes an index from a collection
func (se *StorageEngine) DropIndex(collName, fieldName string) error {
	se.mu.Lock()
	defer se.mu.Unlock()
	if err := se.indexEngine.DropIndex(collName, fieldName); err != nil {
		return err
	}
	se.markDirty(collName, 0)
	return nil
}

// GetIndexes returns all index names for a collection
func (se *StorageEngine) GetIndexes(collName string) ([]string, error) {
	se.mu.RLock()
	_, exists := se.collections[collName]
	se.mu.RUnlock()
	if !exists {
		return nil, domain.NotFound("collection %s does not exist", collName)
	}
	return se.indexEngine.GetIndexes(collName)
}

// HasIndex reports whether fieldName is indexed in a collection.
func (se *StorageEngine) HasIndex(collName, fieldName string) bool {
	return se.indexEngine.HasIndex(collName, fieldName)
}

// FindByField returns the documents whose indexed field equals value, in
// insertion order.
func (se *StorageEngine) FindByField(ctx context.Context, collName, fieldName string, value interface{}) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := []domain.Document{}
	err := se.withCollection(collName, func(collection *domain.Collection) error {
		positions, err := se.indexEngine.Lookup(collName, fieldName, value)
		if err != nil {
			return err
		}
		for _, pos := range positions {
			if pos < collection.Len() {
				results = append(results, collection.Documents[pos])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
