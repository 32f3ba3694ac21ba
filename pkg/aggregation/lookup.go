package aggregation

import (
	"context"
	"sort"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// Lookup joins each document with the documents of From whose ForeignField
// equals the document's LocalField, storing them as a list in As. The list
// is empty when nothing matches and keeps the foreign collection's order.
// A list-valued field on either side matches element-wise.
type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
}

func (Lookup) Kind() StageKind { return StageLookup }

func (l Lookup) Validate() error {
	switch {
	case l.From == "":
		return domain.Validation("lookup requires from")
	case l.LocalField == "":
		return domain.Validation("lookup requires localField")
	case l.ForeignField == "":
		return domain.Validation("lookup requires foreignField")
	case l.As == "":
		return domain.Validation("lookup requires as")
	}
	return nil
}

// joinTable is the foreign collection hashed by join key.
type joinTable struct {
	docs  []domain.Document
	index map[string][]int
}

func (l Lookup) apply(ctx context.Context, run *execution, docs []domain.Document) ([]domain.Document, error) {
	finder, _ := run.provider.(domain.FieldFinder)
	indexed := finder != nil && finder.HasIndex(l.From, l.ForeignField)

	var table *joinTable
	buildTable := func() error {
		if table != nil {
			return nil
		}
		foreign, err := run.fetch(ctx, l.From)
		if err != nil {
			return err
		}
		table, err = hashForeign(ctx, foreign, l.ForeignField)
		return err
	}

	// Without an index the foreign collection is fetched up front so an
	// unknown collection is reported even for empty input.
	if !indexed {
		if err := buildTable(); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}
		v, found := domain.Lookup(doc, l.LocalField)

		var joined []interface{}
		if indexed && isScalarKey(v, found) {
			matches, err := finder.FindByField(ctx, l.From, l.ForeignField, v)
			if err != nil {
				return nil, providerError(err, l.From)
			}
			joined = make([]interface{}, len(matches))
			for j, m := range matches {
				joined[j] = m
			}
		} else {
			if err := buildTable(); err != nil {
				return nil, err
			}
			joined = table.match(v, found)
		}
		out = append(out, domain.WithField(doc, l.As, joined))
	}
	return out, nil
}

func hashForeign(ctx context.Context, foreign []domain.Document, field string) (*joinTable, error) {
	t := &joinTable{docs: foreign, index: make(map[string][]int)}
	for pos, fdoc := range foreign {
		if err := checkContext(ctx, pos); err != nil {
			return nil, err
		}
		v, found := domain.Lookup(fdoc, field)
		for _, key := range domain.JoinKeys(v, found) {
			positions := t.index[key]
			if n := len(positions); n > 0 && positions[n-1] == pos {
				continue
			}
			t.index[key] = append(positions, pos)
		}
	}
	return t, nil
}

func (t *joinTable) match(v interface{}, found bool) []interface{} {
	matched := make(map[int]struct{})
	for _, key := range domain.JoinKeys(v, found) {
		for _, pos := range t.index[key] {
			matched[pos] = struct{}{}
		}
	}
	positions := make([]int, 0, len(matched))
	for pos := range matched {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	joined := make([]interface{}, 0, len(positions))
	for _, pos := range positions {
		joined = append(joined, t.docs[pos])
	}
	return joined
}

// isScalarKey reports whether a local value joins on exactly one key.
func isScalarKey(v interface{}, found bool) bool {
	if !found || v == nil {
		return false
	}
	_, isList := domain.AsList(v)
	return !isList
}
