package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/rs/zerolog/log"
)

func (se *StorageEngine) collectionsDir() string {
	return filepath.Join(se.dataDir, "collections")
}

func (se *StorageEngine) collectionPath(collName string) string {
	return filepath.Join(se.collectionsDir(), collectionFileName(collName))
}

// LoadCollectionMetadata registers every collection file found under the
// data directory without loading its documents.
func (se *StorageEngine) LoadCollectionMetadata() error {
	entries, err := os.ReadDir(se.collectionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read collections directory: %w", err)
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	loaded := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, FileExtension) {
			continue
		}
		collName := strings.TrimSuffix(name, FileExtension)
		if _, exists := se.collections[collName]; exists {
			continue
		}

		header, size, err := readFileHeader(filepath.Join(se.collectionsDir(), name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable collection file")
			continue
		}
		info, _ := entry.Info()
		modified := time.Now()
		if info != nil {
			modified = info.ModTime()
		}
		se.collections[collName] = &CollectionInfo{
			Name:          collName,
			DocumentCount: int64(header.DocCount),
			SizeOnDisk:    size,
			State:         CollectionStateUnloaded,
			LastModified:  modified,
		}
		loaded++
	}

	log.Info().Int("collections", loaded).Str("dataDir", se.dataDir).Msg("Loaded collection metadata")
	return nil
}

func readFileHeader(path string) (*FileHeader, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	header, err := ReadHeader(file)
	if err != nil {
		return nil, 0, err
	}
	stat, err := file.Stat()
	if err != nil {
		return nil, 0, err
	}
	return header, stat.Size(), nil
}

// loadCollectionFromDisk loads a single collection from disk and restores its
// indexes. The caller must hold se.mu for writing.
func (se *StorageEngine) loadCollectionFromDisk(collName string) (*domain.Collection, error) {
	data, err := os.ReadFile(se.collectionPath(collName))
	if err != nil {
		return nil, err
	}
	stored, err := DecodeCollection(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if stored.Collection != collName {
		return nil, fmt.Errorf("file holds collection %q, expected %q", stored.Collection, collName)
	}

	collection := domain.NewCollection(collName)
	for _, doc := range stored.Documents {
		collection.Append(domain.Document(doc))
	}

	for _, field := range stored.Indexes {
		if !se.indexEngine.HasIndex(collName, field) {
			if err := se.indexEngine.CreateIndex(collName, field); err != nil {
				return nil, err
			}
		}
	}
	se.indexEngine.RebuildCollection(collName, collection)

	log.Info().
		Str("collection", collName).
		Int("documents", collection.Len()).
		Int("indexes", len(stored.Indexes)).
		Msg("Loaded collection")

	return collection, nil
}

// SaveAll writes every dirty collection to disk.
func (se *StorageEngine) SaveAll() error {
	_, err := se.saveDirtyCollections()
	return err
}

// saveDirtyCollections saves all dirty collections to individual files
func (se *StorageEngine) saveDirtyCollections() (int, error) {
	start := time.Now()

	se.mu.RLock()
	var dirtyCollections []string
	for collName, info := range se.collections {
		if info.State == CollectionStateDirty {
			dirtyCollections = append(dirtyCollections, collName)
		}
	}
	se.mu.RUnlock()

	if len(dirtyCollections) == 0 {
		log.Debug().Msg("No dirty collections to save")
		return 0, nil
	}

	log.Info().Int("dirty", len(dirtyCollections)).Msg("Save starting")

	var errs []error
	saved := 0
	for _, collName := range dirtyCollections {
		if err := se.saveCollectionToFile(collName); err != nil {
			log.Error().Err(err).Str("collection", collName).Msg("Failed to save collection")
			errs = append(errs, err)
			continue
		}
		saved++
	}

	event := log.Info()
	if len(errs) > 0 {
		event = log.Warn().Int("errors", len(errs))
	}
	event.Int("saved", saved).Dur("took", time.Since(start)).Msg("Save completed")
	return saved, errors.Join(errs...)
}

// saveCollectionToFile snapshots a collection under the read lock, writes it
// atomically and marks it clean unless it changed while being written.
func (se *StorageEngine) saveCollectionToFile(collName string) error {
	lock := se.saveLock(collName)
	lock.Lock()
	defer lock.Unlock()

	se.mu.RLock()
	info, exists := se.collections[collName]
	if !exists {
		se.mu.RUnlock()
		return domain.NotFound("collection %s does not exist", collName)
	}
	if info.State != CollectionStateDirty {
		se.mu.RUnlock()
		return nil
	}
	collection, _, found := se.cache.Get(collName)
	if !found {
		se.mu.RUnlock()
		return fmt.Errorf("collection %s not found in cache", collName)
	}
	docs := collection.Snapshot()
	version := info.Version
	se.mu.RUnlock()

	indexes, _ := se.indexEngine.GetIndexes(collName)
	encoded, err := EncodeCollection(collName, docs, indexes)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(se.collectionsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create collections directory: %w", err)
	}

	// Write to temporary file first, then rename (atomic operation)
	filename := se.collectionPath(collName)
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write collection file: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename collection file: %w", err)
	}

	se.mu.Lock()
	info.SizeOnDisk = int64(len(encoded))
	if info.Version == version && info.State == CollectionStateDirty {
		info.State = CollectionStateLoaded
	}
	se.mu.Unlock()

	log.Debug().
		Str("collection", collName).
		Int("documents", len(docs)).
		Int("bytes", len(encoded)).
		Msg("Saved collection")
	return nil
}
