package domain

import "context"

// CollectionProvider is the only capability the aggregation engine needs from
// a store: read every document of a named collection, and append documents.
type CollectionProvider interface {
	// FetchAll returns the documents of the collection in insertion order.
	// Unknown collections yield a KindNotFound error.
	FetchAll(ctx context.Context, collName string) ([]Document, error)
	// Insert appends a document, generating an _id when absent, and returns
	// the stored document.
	Insert(ctx context.Context, collName string, doc Document) (Document, error)
}

// DocumentStore is the full store surface used by the HTTP layer.
type DocumentStore interface {
	CollectionProvider
	BatchInsert(ctx context.Context, collName string, docs []Document) ([]Document, error)
	GetById(ctx context.Context, collName, docId string) (Document, error)
	Find(ctx context.Context, collName string, filter map[string]interface{}, options *PaginationOptions) (*PaginationResult, error)
	ListCollections(ctx context.Context) ([]string, error)
}
