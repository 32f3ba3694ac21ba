package aggregation

import (
	"context"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// ProjectMode says what a projection does with its field.
type ProjectMode int

const (
	ProjectInclude ProjectMode = iota + 1
	ProjectExclude
	ProjectCompute
)

// Projection is one field of a Project stage.
type Projection struct {
	Field string
	Mode  ProjectMode
	Expr  Expression
}

func Include(field string) Projection { return Projection{Field: field, Mode: ProjectInclude} }
func Exclude(field string) Projection { return Projection{Field: field, Mode: ProjectExclude} }
func Computed(field string, expr Expression) Projection {
	return Projection{Field: field, Mode: ProjectCompute, Expr: expr}
}

// Project reshapes each document. In inclusion mode only the listed and
// computed fields (plus _id unless excluded) are kept; in exclusion mode the
// listed fields are removed. Computed fields that evaluate to absent are
// omitted.
type Project struct {
	Fields []Projection
}

// ProjectFields builds a Project stage.
func ProjectFields(fields ...Projection) Project { return Project{Fields: fields} }

func (Project) Kind() StageKind { return StageProject }

func (p Project) Validate() error {
	if len(p.Fields) == 0 {
		return domain.Validation("project requires at least one field")
	}
	seen := make(map[string]struct{}, len(p.Fields))
	for _, f := range p.Fields {
		if f.Field == "" {
			return domain.Validation("projection field is empty")
		}
		if _, dup := seen[f.Field]; dup {
			return domain.Validation("duplicate projection field %q", f.Field)
		}
		seen[f.Field] = struct{}{}
		switch f.Mode {
		case ProjectInclude, ProjectExclude:
		case ProjectCompute:
			if f.Expr == nil {
				return domain.Validation("computed field %q has no expression", f.Field)
			}
		default:
			return domain.Validation("projection field %q has no mode", f.Field)
		}
	}
	_, err := p.exclusive()
	return err
}

// exclusive reports whether the projection removes fields rather than
// selecting them. Excluding _id is allowed in either mode.
func (p Project) exclusive() (bool, error) {
	var includes, excludes int
	for _, f := range p.Fields {
		switch f.Mode {
		case ProjectInclude, ProjectCompute:
			includes++
		case ProjectExclude:
			if f.Field != "_id" {
				excludes++
			}
		}
	}
	if includes > 0 && excludes > 0 {
		return false, domain.Evaluation("cannot mix inclusion and exclusion in a projection")
	}
	return includes == 0, nil
}

func (p Project) apply(ctx context.Context, _ *execution, docs []domain.Document) ([]domain.Document, error) {
	exclusive, err := p.exclusive()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}
		var shaped domain.Document
		if exclusive {
			shaped = p.excludeFrom(doc)
		} else {
			shaped, err = p.includeFrom(doc)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, shaped)
	}
	return out, nil
}

func (p Project) excludeFrom(doc domain.Document) domain.Document {
	out := doc.Clone()
	for _, f := range p.Fields {
		out = domain.WithoutField(out, f.Field)
	}
	return out
}

func (p Project) includeFrom(doc domain.Document) (domain.Document, error) {
	out := make(domain.Document, len(p.Fields)+1)
	keepID := true
	for _, f := range p.Fields {
		if f.Field == "_id" && f.Mode == ProjectExclude {
			keepID = false
		}
	}
	if id, ok := doc["_id"]; ok && keepID {
		out["_id"] = id
	}

	for _, f := range p.Fields {
		switch f.Mode {
		case ProjectInclude:
			if v, found := domain.Lookup(doc, f.Field); found {
				out = domain.WithField(out, f.Field, v)
			}
		case ProjectCompute:
			v, found, err := f.Expr.Eval(doc)
			if err != nil {
				return nil, err
			}
			if found {
				out = domain.WithField(out, f.Field, v)
			}
		}
	}
	return out, nil
}
