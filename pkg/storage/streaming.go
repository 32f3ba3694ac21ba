package storage

import (
	"context"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// FindStream streams the documents matching filter in insertion order. The
// channel is closed when every match was sent or ctx is done.
func (se *StorageEngine) FindStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan domain.Document, error) {
	matches, err := se.collectMatches(ctx, collName, filter)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Document, 100)
	go func() {
		defer close(out)
		for _, doc := range matches {
			select {
			case out <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
