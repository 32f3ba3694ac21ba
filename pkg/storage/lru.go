package storage

import (
	"container/list"
	"sync"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// LRUCache holds loaded collections. Dirty collections are never evicted,
// so the cache may temporarily exceed its capacity.
type LRUCache struct {
	mu       sync.RWMutex
	capacity int
	list     *list.List
	cache    map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value *domain.Collection
	info  *CollectionInfo
}

func NewLRUCache(capacity int) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		list:     list.New(),
		cache:    make(map[string]*list.Element),
	}
}

func (lru *LRUCache) Get(key string) (*domain.Collection, *CollectionInfo, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		entry := element.Value.(*cacheEntry)
		lru.list.MoveToFront(element)
		entry.info.AccessCount++
		entry.info.LastAccessed = time.Now()
		return entry.value, entry.info, true
	}
	return nil, nil, false
}

// Put adds or refreshes a collection and returns the keys it evicted.
func (lru *LRUCache) Put(key string, collection *domain.Collection, info *CollectionInfo) []string {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		entry := element.Value.(*cacheEntry)
		entry.value = collection
		entry.info = info
		lru.list.MoveToFront(element)
		return nil
	}

	entry := &cacheEntry{key: key, value: collection, info: info}
	element := lru.list.PushFront(entry)
	lru.cache[key] = element

	var evicted []string
	for lru.list.Len() > lru.capacity {
		victim, ok := lru.evictOldest()
		if !ok {
			break
		}
		evicted = append(evicted, victim)
	}
	return evicted
}

// evictOldest removes the least recently used clean entry. The most recent
// entry is never evicted.
func (lru *LRUCache) evictOldest() (string, bool) {
	for element := lru.list.Back(); element != nil && element != lru.list.Front(); element = element.Prev() {
		entry := element.Value.(*cacheEntry)
		if entry.info.State == CollectionStateDirty {
			continue
		}
		delete(lru.cache, entry.key)
		lru.list.Remove(element)
		entry.info.State = CollectionStateUnloaded
		return entry.key, true
	}
	return "", false
}

func (lru *LRUCache) Remove(key string) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		delete(lru.cache, key)
		lru.list.Remove(element)
	}
}

// Keys returns the cached collection names from most to least recently used.
func (lru *LRUCache) Keys() []string {
	lru.mu.RLock()
	defer lru.mu.RUnlock()
	keys := make([]string, 0, lru.list.Len())
	for element := lru.list.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*cacheEntry).key)
	}
	return keys
}

func (lru *LRUCache) Capacity() int {
	return lru.capacity
}

func (lru *LRUCache) Len() int {
	lru.mu.RLock()
	defer lru.mu.RUnlock()
	return lru.list.Len()
}
