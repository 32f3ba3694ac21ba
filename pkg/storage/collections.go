package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/rs/zerolog/log"
)

// getCollectionInternal returns a cached collection or loads it from disk.
// The caller must hold se.mu for writing.
func (se *StorageEngine) getCollectionInternal(collName string) (*domain.Collection, error) {
	if collection, _, found := se.cache.Get(collName); found {
		return collection, nil
	}

	collectionInfo, exists := se.collections[collName]
	if !exists {
		return nil, domain.NotFound("collection %s does not exist", collName)
	}

	collectionInfo.State = CollectionStateLoading
	collection, err := se.loadCollectionFromDisk(collName)
	if err != nil {
		collectionInfo.State = CollectionStateUnloaded
		return nil, domain.Provider(err, "failed to load collection %s", collName)
	}

	collectionInfo.State = CollectionStateLoaded
	collectionInfo.DocumentCount = int64(collection.Len())
	collectionInfo.LastAccessed = time.Now()
	se.putInCache(collName, collection, collectionInfo)

	return collection, nil
}

func (se *StorageEngine) putInCache(collName string, collection *domain.Collection, info *CollectionInfo) {
	for _, evicted := range se.cache.Put(collName, collection, info) {
		log.Debug().Str("collection", evicted).Msg("Evicted collection from cache")
	}
}

// withCollection runs fn with the collection loaded and se.mu held for
// reading. Cache hits take only the read lock.
func (se *StorageEngine) withCollection(collName string, fn func(*domain.Collection) error) error {
	se.mu.RLock()
	if collection, _, found := se.cache.Get(collName); found {
		defer se.mu.RUnlock()
		return fn(collection)
	}
	se.mu.RUnlock()

	se.mu.Lock()
	collection, err := se.getCollectionInternal(collName)
	se.mu.Unlock()
	if err != nil {
		return err
	}

	se.mu.RLock()
	defer se.mu.RUnlock()
	return fn(collection)
}

// CreateCollection creates a new empty collection
func (se *StorageEngine) CreateCollection(collName string) error {
	if err := validateCollectionName(collName); err != nil {
		return err
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	if _, exists := se.collections[collName]; exists {
		return domain.Validation("collection %s already exists", collName)
	}
	se.createCollectionInternal(collName)
	return nil
}

// createCollectionInternal registers an empty dirty collection. The caller
// must hold se.mu for writing.
func (se *StorageEngine) createCollectionInternal(collName string) *domain.Collection {
	collection := domain.NewCollection(collName)
	info := &CollectionInfo{
		Name:         collName,
		State:        CollectionStateDirty,
		LastModified: time.Now(),
	}
	se.collections[collName] = info
	se.putInCache(collName, collection, info)
	return collection
}

// ListCollections returns the names of all known collections, sorted.
func (se *StorageEngine) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	se.mu.RLock()
	defer se.mu.RUnlock()

	names := make([]string, 0, len(se.collections))
	for name := range se.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetCollectionInfo returns a copy of a collection's metadata. Cache hits
// update access stats under the read lock, so the copy takes the write lock.
func (se *StorageEngine) GetCollectionInfo(collName string) (CollectionInfo, bool) {
	se.mu.Lock()
	defer se.mu.Unlock()
	info, exists := se.collections[collName]
	if !exists {
		return CollectionInfo{}, false
	}
	return *info, true
}

func validateCollectionName(collName string) error {
	if collName == "" {
		return domain.Validation("collection name cannot be empty")
	}
	for _, r := range collName {
		ok := r == '_' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return domain.Validation("collection name %q contains invalid character %q", collName, r)
		}
	}
	if collName == "." || collName == ".." {
		return domain.Validation("collection name %q is reserved", collName)
	}
	return nil
}

func collectionFileName(collName string) string {
	return fmt.Sprintf("%s%s", collName, FileExtension)
}
