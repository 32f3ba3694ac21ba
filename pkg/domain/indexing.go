package domain

import "context"

// FieldFinder is implemented by stores that keep equality indexes on
// document fields. Results must equal a filtered FetchAll, in collection order.
type FieldFinder interface {
	HasIndex(collName, fieldName string) bool
	FindByField(ctx context.Context, collName, fieldName string, value interface{}) ([]Document, error)
}

// IndexManager defines index administration for stores that support it
type IndexManager interface {
	CreateIndex(collName, fieldName string) error
	DropIndex(collName, fieldName string) error
	GetIndexes(collName string) ([]string, error)
}
