package aggregation

import (
	"context"
	"strings"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// Unwind emits one document per element of the list at Path, with the list
// replaced by the element. Documents whose field is missing, null or an
// empty list are dropped unless PreserveNullAndEmpty is set. A non-list
// value is passed through unchanged.
type Unwind struct {
	Path                 string
	IncludeArrayIndex    string
	PreserveNullAndEmpty bool
}

// UnwindField builds an Unwind stage with default options.
func UnwindField(path string) Unwind { return Unwind{Path: strings.TrimPrefix(path, "$")} }

func (Unwind) Kind() StageKind { return StageUnwind }

func (u Unwind) Validate() error {
	if u.Path == "" {
		return domain.Validation("unwind path is empty")
	}
	if strings.HasPrefix(u.Path, "$") {
		return domain.Validation("unwind path %q must not start with '$'", u.Path)
	}
	if strings.HasPrefix(u.IncludeArrayIndex, "$") {
		return domain.Validation("includeArrayIndex %q must not start with '$'", u.IncludeArrayIndex)
	}
	return nil
}

func (u Unwind) apply(ctx context.Context, _ *execution, docs []domain.Document) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}

		v, found := domain.Lookup(doc, u.Path)
		list, isList := domain.AsList(v)

		switch {
		case !found || v == nil:
			if u.PreserveNullAndEmpty {
				out = append(out, u.withIndex(doc, nil))
			}
		case isList && len(list) == 0:
			if u.PreserveNullAndEmpty {
				out = append(out, u.withIndex(domain.WithoutField(doc, u.Path), nil))
			}
		case isList:
			for idx, elem := range list {
				out = append(out, u.withIndex(domain.WithField(doc, u.Path, elem), int64(idx)))
			}
		default:
			out = append(out, u.withIndex(doc, nil))
		}
	}
	return out, nil
}

func (u Unwind) withIndex(doc domain.Document, idx interface{}) domain.Document {
	if u.IncludeArrayIndex == "" {
		return doc
	}
	return domain.WithField(doc, u.IncludeArrayIndex, idx)
}
