package redisstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a Store backed by miniredis.
func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	store, err := Open(context.Background(), mini.Addr(), "", 0, WithPrefix("test"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mini
}

func TestStore_InsertAndFetchAll(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()
	when := time.Date(2022, 1, 3, 4, 58, 23, 0, time.UTC)

	stored, err := store.Insert(ctx, "events", domain.Document{
		"user_id":    "U1",
		"event_type": "click",
		"event_date": when,
		"props":      map[string]interface{}{"x": 1},
	})
	require.NoError(t, err)
	id, ok := stored["_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	_, err = store.Insert(ctx, "events", domain.Document{"_id": "e2", "user_id": "U2", "score": 2.5})
	require.NoError(t, err)

	docs, err := store.FetchAll(ctx, "events")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, id, docs[0]["_id"])
	assert.Equal(t, when, docs[0]["event_date"])
	assert.Equal(t, domain.Document{"x": int64(1)}, docs[0]["props"])
	assert.Equal(t, "e2", docs[1]["_id"])
	assert.Equal(t, 2.5, docs[1]["score"])

	assert.True(t, mini.Exists("test:coll:events"))
	members, err := mini.Members("test:collections")
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, members)
}

func TestStore_FetchAllPagesThroughLargeCollections(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	docs := make([]domain.Document, pageSize*2+7)
	for i := range docs {
		docs[i] = domain.Document{"_id": fmt.Sprintf("d%04d", i), "seq": i}
	}
	_, err := store.BatchInsert(ctx, "big", docs)
	require.NoError(t, err)

	got, err := store.FetchAll(ctx, "big")
	require.NoError(t, err)
	require.Len(t, got, len(docs))
	for i, doc := range got {
		assert.Equal(t, int64(i), doc["seq"])
	}
}

func TestStore_Errors(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	_, err := store.Insert(ctx, "users", domain.Document{"_id": "u1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		kind domain.ErrorKind
	}{
		{"fetch unknown collection", func() error { _, err := store.FetchAll(ctx, "ghosts"); return err }, domain.KindNotFound},
		{"get unknown collection", func() error { _, err := store.GetById(ctx, "ghosts", "u1"); return err }, domain.KindNotFound},
		{"get unknown id", func() error { _, err := store.GetById(ctx, "users", "u9"); return err }, domain.KindNotFound},
		{"find unknown collection", func() error { _, err := store.Find(ctx, "ghosts", nil, nil); return err }, domain.KindNotFound},
		{"stream unknown collection", func() error { _, err := store.FindStream(ctx, "ghosts", nil); return err }, domain.KindNotFound},
		{"duplicate id", func() error { _, err := store.Insert(ctx, "users", domain.Document{"_id": "u1"}); return err }, domain.KindValidation},
		{"duplicate in batch", func() error {
			_, err := store.BatchInsert(ctx, "users", []domain.Document{{"_id": "a"}, {"_id": "a"}})
			return err
		}, domain.KindValidation},
		{"empty batch", func() error { _, err := store.BatchInsert(ctx, "users", nil); return err }, domain.KindValidation},
		{"nil document", func() error { _, err := store.Insert(ctx, "users", nil); return err }, domain.KindValidation},
		{"bad collection name", func() error { _, err := store.Insert(ctx, "a:b", domain.Document{}); return err }, domain.KindValidation},
		{"bad pagination", func() error {
			_, err := store.Find(ctx, "users", nil, &domain.PaginationOptions{Offset: -1})
			return err
		}, domain.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, tt.kind), err.Error())
		})
	}

	docs, err := store.FetchAll(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_BatchInsertIsAtomic(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	_, err := store.Insert(ctx, "orders", domain.Document{"_id": "o1"})
	require.NoError(t, err)

	_, err = store.BatchInsert(ctx, "orders", []domain.Document{{"_id": "o2"}, {"_id": "o1"}})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Contains(t, err.Error(), "o1")

	_, err = store.GetById(ctx, "orders", "o2")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	docs, err := store.FetchAll(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_ConcurrentBatchesWithSameId(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			_, errs[w] = store.BatchInsert(ctx, "orders", []domain.Document{
				{"_id": fmt.Sprintf("own-%d", w)},
				{"_id": "shared"},
			})
		}(w)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, domain.IsKind(err, domain.KindValidation), err)
	}
	assert.Equal(t, 1, succeeded)

	docs, err := store.FetchAll(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestStore_GetById(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	_, err := store.BatchInsert(ctx, "products", []domain.Document{
		{"_id": "P1", "name": "Widget", "price": 10},
		{"_id": "P2", "name": "Gadget", "price": 5.5},
	})
	require.NoError(t, err)

	doc, err := store.GetById(ctx, "products", "P2")
	require.NoError(t, err)
	assert.Equal(t, "Gadget", doc["name"])
	assert.Equal(t, 5.5, doc["price"])

	doc, err = store.GetById(ctx, "products", "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), doc["price"])
}

func TestStore_Find(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	var docs []domain.Document
	for i := 0; i < 12; i++ {
		docs = append(docs, domain.Document{"_id": fmt.Sprintf("s%02d", i), "region": []string{"North", "South"}[i%2]})
	}
	_, err := store.BatchInsert(ctx, "sales", docs)
	require.NoError(t, err)

	result, err := store.Find(ctx, "sales", map[string]interface{}{"region": "south"}, &domain.PaginationOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "s05", result.Documents[0]["_id"])
	assert.Equal(t, "s07", result.Documents[1]["_id"])
	assert.Equal(t, int64(6), result.Total)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestStore_FindStream(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	var docs []domain.Document
	for i := 0; i < 40; i++ {
		docs = append(docs, domain.Document{"_id": fmt.Sprintf("m%02d", i), "odd": i%2 == 1})
	}
	_, err := store.BatchInsert(ctx, "metrics", docs)
	require.NoError(t, err)

	ch, err := store.FindStream(ctx, "metrics", map[string]interface{}{"odd": true})
	require.NoError(t, err)
	var ids []string
	for doc := range ch {
		ids = append(ids, doc["_id"].(string))
	}
	require.Len(t, ids, 20)
	assert.Equal(t, "m01", ids[0])
	assert.Equal(t, "m39", ids[19])
}

func TestStore_ListCollections(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"users", "movies", "orders"} {
		_, err := store.Insert(ctx, name, domain.Document{"n": 1})
		require.NoError(t, err)
	}
	names, err = store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"movies", "orders", "users"}, names)
}

func TestStore_ConcurrentInserts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 4
	const perWorker = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := store.Insert(ctx, "logs", domain.Document{"_id": fmt.Sprintf("%d-%d", w, i)})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	docs, err := store.FetchAll(ctx, "logs")
	require.NoError(t, err)
	require.Len(t, docs, workers*perWorker)
	for _, doc := range docs {
		got, err := store.GetById(ctx, "logs", doc["_id"].(string))
		require.NoError(t, err)
		assert.Equal(t, doc["_id"], got["_id"], "id positions stay consistent with the list")
	}
}

func TestStore_ProviderErrorWhenServerIsDown(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	addr := mini.Addr()
	store := New(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}))
	defer store.Close()
	mini.Close()

	_, err = store.FetchAll(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindProvider))
	assert.True(t, domain.IsKind(store.Ping(context.Background()), domain.KindProvider))

	_, err = Open(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
