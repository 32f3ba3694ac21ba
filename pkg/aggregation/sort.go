package aggregation

import (
	"context"
	"sort"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// SortKey orders documents by one field.
type SortKey struct {
	Field      string
	Descending bool
}

func Asc(field string) SortKey  { return SortKey{Field: field} }
func Desc(field string) SortKey { return SortKey{Field: field, Descending: true} }

// Sort orders documents by its keys, most significant first. The sort is
// stable and absent fields order as null.
type Sort struct {
	Keys []SortKey
}

// SortBy builds a Sort stage.
func SortBy(keys ...SortKey) Sort { return Sort{Keys: keys} }

func (Sort) Kind() StageKind { return StageSort }

func (s Sort) Validate() error {
	if len(s.Keys) == 0 {
		return domain.Validation("sort requires at least one key")
	}
	seen := make(map[string]struct{}, len(s.Keys))
	for _, k := range s.Keys {
		if k.Field == "" {
			return domain.Validation("sort key field is empty")
		}
		if _, dup := seen[k.Field]; dup {
			return domain.Validation("duplicate sort key %q", k.Field)
		}
		seen[k.Field] = struct{}{}
	}
	return nil
}

func (s Sort) apply(ctx context.Context, _ *execution, docs []domain.Document) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Resolve every key once so the comparator does no path walking.
	keys := make([][]interface{}, len(docs))
	for i, doc := range docs {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(s.Keys))
		for j, k := range s.Keys {
			v, _ := domain.Lookup(doc, k.Field)
			row[j] = v
		}
		keys[i] = row
	}

	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := keys[order[a]], keys[order[b]]
		for j, k := range s.Keys {
			cmp := domain.CompareValues(ra[j], rb[j])
			if cmp == 0 {
				continue
			}
			if k.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	out := make([]domain.Document, len(docs))
	for i, idx := range order {
		out[i] = docs[idx]
	}
	return out, nil
}
