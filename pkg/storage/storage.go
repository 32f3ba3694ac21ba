package storage

import (
	"context"
	"sync"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/adfharrison1/go-analytics/pkg/indexing"
)

var (
	_ domain.DocumentStore = (*StorageEngine)(nil)
	_ domain.FieldFinder   = (*StorageEngine)(nil)
	_ domain.IndexManager  = (*StorageEngine)(nil)
)

// StorageEngine is an in-memory document store with LRU caching of loaded
// collections, lazy loading from disk and snapshot persistence.
type StorageEngine struct {
	mu          sync.RWMutex
	cache       *LRUCache
	collections map[string]*CollectionInfo // Collection metadata (always in memory)
	indexEngine *indexing.IndexEngine

	// Serializes saves of the same collection
	saveLocks   map[string]*sync.Mutex
	saveLocksMu sync.Mutex

	// Configuration
	maxMemoryMB     int
	dataDir         string
	backgroundSave  bool
	transactionSave bool
	saveInterval    time.Duration

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
}

// NewStorageEngine creates a new storage engine
func NewStorageEngine(options ...StorageOption) *StorageEngine {
	engine := &StorageEngine{
		collections:     make(map[string]*CollectionInfo),
		indexEngine:     indexing.NewIndexEngine(),
		saveLocks:       make(map[string]*sync.Mutex),
		maxMemoryMB:     1024, // 1GB default
		dataDir:         ".",
		backgroundSave:  false,
		transactionSave: false,
		saveInterval:    5 * time.Minute,
		stopChan:        make(chan struct{}),
	}

	for _, option := range options {
		option(engine)
	}

	// Rough estimate: 100MB per collection
	capacity := engine.maxMemoryMB / 100
	if capacity < 1 {
		capacity = 1
	}
	engine.cache = NewLRUCache(capacity)

	return engine
}

// saveLock returns the mutex serializing saves of a collection.
func (se *StorageEngine) saveLock(collName string) *sync.Mutex {
	se.saveLocksMu.Lock()
	defer se.saveLocksMu.Unlock()
	lock, exists := se.saveLocks[collName]
	if !exists {
		lock = &sync.Mutex{}
		se.saveLocks[collName] = lock
	}
	return lock
}

// SaveCollectionAfterTransaction saves a specific collection to disk if transaction saves are enabled
func (se *StorageEngine) SaveCollectionAfterTransaction(collName string) error {
	if !se.transactionSave {
		return nil
	}
	return se.saveCollectionToFile(collName)
}

// IsTransactionSaveEnabled returns whether transaction-based saves are enabled
func (se *StorageEngine) IsTransactionSaveEnabled() bool {
	return se.transactionSave
}

// DataDir returns the directory collections are persisted under.
func (se *StorageEngine) DataDir() string {
	return se.dataDir
}

// Ping reports whether the engine can serve requests.
func (se *StorageEngine) Ping(ctx context.Context) error {
	return ctx.Err()
}
