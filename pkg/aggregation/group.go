package aggregation

import (
	"context"
	"strings"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// Group partitions documents by the value of ID and emits one document per
// partition with an _id field and one field per accumulator. A nil ID puts
// every document in a single partition keyed by null. Partitions are emitted
// in the order their key was first seen.
type Group struct {
	ID           Expression
	Accumulators []Accumulator
}

// GroupBy builds a Group stage.
func GroupBy(id Expression, accumulators ...Accumulator) Group {
	return Group{ID: id, Accumulators: accumulators}
}

func (Group) Kind() StageKind { return StageGroup }

func (g Group) Validate() error {
	seen := make(map[string]struct{}, len(g.Accumulators))
	for _, acc := range g.Accumulators {
		switch {
		case acc.Field == "":
			return domain.Validation("accumulator field is empty")
		case acc.Field == "_id":
			return domain.Validation("accumulator cannot be named _id")
		case strings.Contains(acc.Field, "."):
			return domain.Validation("accumulator field %q cannot contain '.'", acc.Field)
		}
		if _, dup := seen[acc.Field]; dup {
			return domain.Validation("duplicate accumulator field %q", acc.Field)
		}
		seen[acc.Field] = struct{}{}

		if acc.newState() == nil {
			return domain.Validation("unsupported accumulator %s for %q", acc.Op, acc.Field)
		}
		if acc.Op != AccCount && acc.Expr == nil {
			return domain.Validation("accumulator %s for %q has no expression", acc.Op, acc.Field)
		}
	}
	return nil
}

type partition struct {
	id     interface{}
	states []accState
}

func (g Group) apply(ctx context.Context, _ *execution, docs []domain.Document) ([]domain.Document, error) {
	index := make(map[string]*partition)
	order := make([]*partition, 0)

	for i, doc := range docs {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}

		var id interface{}
		if g.ID != nil {
			v, found, err := g.ID.Eval(doc)
			if err != nil {
				return nil, err
			}
			if found {
				id = v
			}
		}

		key := domain.CanonicalKey(id)
		p, ok := index[key]
		if !ok {
			p = &partition{id: id, states: make([]accState, len(g.Accumulators))}
			for j, acc := range g.Accumulators {
				p.states[j] = acc.newState()
			}
			index[key] = p
			order = append(order, p)
		}

		for j, acc := range g.Accumulators {
			if acc.Op == AccCount {
				p.states[j].add(nil, true)
				continue
			}
			v, found, err := acc.Expr.Eval(doc)
			if err != nil {
				return nil, err
			}
			p.states[j].add(v, found)
		}
	}

	out := make([]domain.Document, 0, len(order))
	for _, p := range order {
		doc := make(domain.Document, len(g.Accumulators)+1)
		doc["_id"] = p.id
		for j, acc := range g.Accumulators {
			doc[acc.Field] = p.states[j].result()
		}
		out = append(out, doc)
	}
	return out, nil
}
