// Package redisstore is a Collection Provider backed by Redis. Each
// collection is a list of msgpack-encoded documents plus a hash from _id to
// list position; a set records the known collection names.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/adfharrison1/go-analytics/pkg/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultPrefix = "goanalytics"
	// Documents are read in pages of this many list entries.
	pageSize = 500
)

// appendScript stores a batch atomically. KEYS are the collection set, the
// document list and the id hash; ARGV is the collection name, the batch
// size n, n ids and n encoded documents. It returns the list position of
// the first document, or the first id that is already stored.
var appendScript = redis.NewScript(`
local n = tonumber(ARGV[2])
local ids = {}
for i = 1, n do
  ids[i] = ARGV[2 + i]
end
local existing = redis.call('HMGET', KEYS[3], unpack(ids))
for i = 1, n do
  if existing[i] then
    return ids[i]
  end
end
local start = redis.call('LLEN', KEYS[2])
for i = 1, n do
  redis.call('RPUSH', KEYS[2], ARGV[2 + n + i])
  redis.call('HSET', KEYS[3], ids[i], start + i - 1)
end
redis.call('SADD', KEYS[1], ARGV[1])
return start
`)

// Store implements domain.DocumentStore on a Redis client.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "goanalytics").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store on an existing client.
func New(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to addr and verifies the connection with a ping.
func Open(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	s := New(rdb, opts...)
	if err := s.Ping(ctx); err != nil {
		rdb.Close()
		return nil, err
	}
	log.Info().Str("addr", addr).Int("db", db).Str("prefix", s.prefix).Msg("Redis store connected")
	return s, nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return domain.Provider(err, "redis ping failed")
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) collectionsKey() string {
	return s.prefix + ":collections"
}

func (s *Store) docsKey(collName string) string {
	return s.prefix + ":coll:" + collName
}

func (s *Store) idsKey(collName string) string {
	return s.prefix + ":ids:" + collName
}

func validateCollectionName(collName string) error {
	if strings.TrimSpace(collName) == "" {
		return domain.Validation("collection name cannot be empty")
	}
	if strings.ContainsAny(collName, ": \t\n") {
		return domain.Validation("collection name %q contains invalid characters", collName)
	}
	return nil
}

// exists reports whether the collection was ever written.
func (s *Store) exists(ctx context.Context, collName string) error {
	member, err := s.rdb.SIsMember(ctx, s.collectionsKey(), collName).Result()
	if err != nil {
		return domain.Provider(err, "failed to check collection %s", collName)
	}
	if !member {
		return domain.NotFound("collection %s does not exist", collName)
	}
	return nil
}

func encodeDocument(doc domain.Document) ([]byte, error) {
	data, err := msgpack.Marshal(map[string]interface{}(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

func decodeDocument(data string) (domain.Document, error) {
	var raw map[string]interface{}
	if err := msgpack.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return domain.NormalizeDocument(domain.Document(raw)), nil
}

// Insert appends a document, generating an _id when absent.
func (s *Store) Insert(ctx context.Context, collName string, doc domain.Document) (domain.Document, error) {
	stored, err := s.BatchInsert(ctx, collName, []domain.Document{doc})
	if err != nil {
		return nil, err
	}
	return stored[0], nil
}

// BatchInsert appends documents with one server-side script, so either every
// document is stored or none is and concurrent batches never conflict.
func (s *Store) BatchInsert(ctx context.Context, collName string, docs []domain.Document) ([]domain.Document, error) {
	if err := validateCollectionName(collName); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.Validation("no documents to insert")
	}

	prepared := make([]domain.Document, len(docs))
	encoded := make([]interface{}, len(docs))
	ids := make([]string, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, domain.Validation("document %d is empty", i)
		}
		p := domain.NormalizeDocument(doc)
		if id, ok := p["_id"]; !ok || id == nil {
			p["_id"] = uuid.NewString()
		}
		ids[i] = domain.IDString(p["_id"])
		if _, dup := seen[ids[i]]; dup {
			return nil, domain.Validation("duplicate _id %s in batch", ids[i])
		}
		seen[ids[i]] = struct{}{}

		data, err := encodeDocument(p)
		if err != nil {
			return nil, domain.Validation("document %d: %v", i, err)
		}
		prepared[i] = p
		encoded[i] = data
	}

	args := make([]interface{}, 0, 2+2*len(docs))
	args = append(args, collName, len(docs))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, encoded...)

	keys := []string{s.collectionsKey(), s.docsKey(collName), s.idsKey(collName)}
	res, err := appendScript.Run(ctx, s.rdb, keys, args...).Result()
	if err != nil {
		return nil, domain.Provider(err, "failed to insert into collection %s", collName)
	}
	if dup, ok := res.(string); ok {
		return nil, domain.Validation("document with id %s already exists in collection %s", dup, collName)
	}

	log.Debug().Str("collection", collName).Int("count", len(prepared)).Msg("Insert successful")

	out := make([]domain.Document, len(prepared))
	for i, p := range prepared {
		out[i] = p.Clone()
	}
	return out, nil
}

// FetchAll returns every document of a collection in insertion order.
func (s *Store) FetchAll(ctx context.Context, collName string) ([]domain.Document, error) {
	if err := s.exists(ctx, collName); err != nil {
		return nil, err
	}
	docs := []domain.Document{}
	err := s.scan(ctx, collName, func(doc domain.Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// scan decodes the collection list page by page and calls fn per document.
func (s *Store) scan(ctx context.Context, collName string, fn func(domain.Document) error) error {
	key := s.docsKey(collName)
	for start := int64(0); ; start += pageSize {
		page, err := s.rdb.LRange(ctx, key, start, start+pageSize-1).Result()
		if err != nil {
			return domain.Provider(err, "failed to read collection %s", collName)
		}
		for _, raw := range page {
			doc, err := decodeDocument(raw)
			if err != nil {
				return domain.Provider(err, "corrupt document in collection %s", collName)
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

// GetById retrieves a specific document by its ID.
func (s *Store) GetById(ctx context.Context, collName, docId string) (domain.Document, error) {
	if err := s.exists(ctx, collName); err != nil {
		return nil, err
	}
	pos, err := s.rdb.HGet(ctx, s.idsKey(collName), docId).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NotFound("document with id %s not found in collection %s", docId, collName)
	}
	if err != nil {
		return nil, domain.Provider(err, "failed to look up document %s", docId)
	}
	index, err := strconv.ParseInt(pos, 10, 64)
	if err != nil {
		return nil, domain.Provider(err, "invalid position for document %s", docId)
	}
	raw, err := s.rdb.LIndex(ctx, s.docsKey(collName), index).Result()
	if err != nil {
		return nil, domain.Provider(err, "failed to read document %s", docId)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, domain.Provider(err, "corrupt document %s", docId)
	}
	return doc, nil
}

// Find filters the collection in insertion order and paginates the matches.
func (s *Store) Find(ctx context.Context, collName string, filter map[string]interface{}, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	if options == nil {
		options = domain.DefaultPaginationOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, collName); err != nil {
		return nil, err
	}
	var matches []domain.Document
	err := s.scan(ctx, collName, func(doc domain.Document) error {
		if storage.MatchesFilter(doc, filter) {
			matches = append(matches, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return domain.Paginate(matches, options)
}

// FindStream sends matching documents as they are read from Redis. The
// channel is closed at the end of the collection, on a read error or when
// ctx is done.
func (s *Store) FindStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan domain.Document, error) {
	if err := s.exists(ctx, collName); err != nil {
		return nil, err
	}
	out := make(chan domain.Document, 100)
	go func() {
		defer close(out)
		err := s.scan(ctx, collName, func(doc domain.Document) error {
			if !storage.MatchesFilter(doc, filter) {
				return nil
			}
			select {
			case out <- doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("collection", collName).Msg("Stream aborted")
		}
	}()
	return out, nil
}

// ListCollections returns the names of all collections, sorted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, s.collectionsKey()).Result()
	if err != nil {
		return nil, domain.Provider(err, "failed to list collections")
	}
	sort.Strings(names)
	return names, nil
}
