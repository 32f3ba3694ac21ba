package aggregation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// ParsePipelineJSON decodes a JSON array of stage objects. Integral numbers
// are decoded as int64.
func ParsePipelineJSON(data []byte) (Pipeline, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.Validation("pipeline must be a JSON array of stages: %v", err)
	}
	return ParsePipeline(raw)
}

// ParsePipeline converts decoded stage objects such as
// {"$match": {"price": {"$gte": 10}}} into a Pipeline.
func ParsePipeline(raw []interface{}) (Pipeline, error) {
	pipeline := make(Pipeline, 0, len(raw))
	for i, elem := range raw {
		stage, err := ParseStage(domain.Normalize(elem))
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		pipeline = append(pipeline, stage)
	}
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// ParseStage converts a single-key stage object into a Stage.
func ParseStage(raw interface{}) (Stage, error) {
	doc, ok := domain.AsDocument(raw)
	if !ok || len(doc) != 1 {
		return nil, domain.Validation("a stage must be an object with exactly one key")
	}
	for name, body := range doc {
		switch name {
		case "$match":
			return parseMatch(body)
		case "$group":
			return parseGroup(body)
		case "$sort":
			return parseSort(body)
		case "$project":
			return parseProject(body)
		case "$unwind":
			return parseUnwind(body)
		case "$lookup":
			return parseLookup(body)
		default:
			return nil, domain.Validation("unsupported stage %s", name)
		}
	}
	return nil, domain.Validation("empty stage")
}

func parseMatch(body interface{}) (Stage, error) {
	doc, ok := domain.AsDocument(body)
	if !ok {
		return nil, domain.Validation("$match expects an object")
	}
	conditions, err := parseConditions(doc)
	if err != nil {
		return nil, err
	}
	return Match{Conditions: conditions}, nil
}

func parseConditions(doc domain.Document) ([]Condition, error) {
	var conditions []Condition
	for _, field := range sortedFields(doc) {
		value := doc[field]
		if field == "$and" {
			clauses, ok := domain.AsList(value)
			if !ok {
				return nil, domain.Validation("$and expects a list")
			}
			for _, clause := range clauses {
				sub, ok := domain.AsDocument(clause)
				if !ok {
					return nil, domain.Validation("$and clauses must be objects")
				}
				parsed, err := parseConditions(sub)
				if err != nil {
					return nil, err
				}
				conditions = append(conditions, parsed...)
			}
			continue
		}
		if strings.HasPrefix(field, "$") {
			return nil, domain.Validation("unsupported match operator %s", field)
		}

		parsed, err := parseFieldConditions(field, value)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, parsed...)
	}
	return conditions, nil
}

func parseFieldConditions(field string, value interface{}) ([]Condition, error) {
	ops, ok := domain.AsDocument(value)
	if !ok || len(ops) == 0 || !allOperators(ops) {
		v, err := literalValue(value)
		if err != nil {
			return nil, err
		}
		return []Condition{{Field: field, Op: OpEq, Value: v}}, nil
	}
	if _, isDate := ops["$date"]; isDate && len(ops) == 1 {
		v, err := literalValue(value)
		if err != nil {
			return nil, err
		}
		return []Condition{{Field: field, Op: OpEq, Value: v}}, nil
	}

	conditions := make([]Condition, 0, len(ops))
	for _, op := range sortedFields(ops) {
		v, err := literalValue(ops[op])
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, Condition{Field: field, Op: CompareOp(op), Value: v})
	}
	return conditions, nil
}

// ResolveLiterals returns a copy of doc with every {"$date": "..."} wrapper
// replaced by its time value, so stored dates compare as dates.
func ResolveLiterals(doc domain.Document) (domain.Document, error) {
	if doc == nil {
		return nil, nil
	}
	resolved, err := literalValue(doc)
	if err != nil {
		return nil, err
	}
	out, _ := domain.AsDocument(resolved)
	return out, nil
}

// literalValue resolves {"$date": "..."} wrappers anywhere inside a value.
func literalValue(raw interface{}) (interface{}, error) {
	if doc, ok := domain.AsDocument(raw); ok {
		if s, isDate := doc["$date"]; isDate && len(doc) == 1 {
			str, ok := s.(string)
			if !ok {
				return nil, domain.Validation("$date expects a string")
			}
			return domain.ParseTime(str)
		}
		out := make(domain.Document, len(doc))
		for k, v := range doc {
			resolved, err := literalValue(v)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	}
	if list, ok := raw.([]interface{}); ok {
		out := make([]interface{}, len(list))
		for i, v := range list {
			resolved, err := literalValue(v)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	}
	return raw, nil
}

func parseGroup(body interface{}) (Stage, error) {
	doc, ok := domain.AsDocument(body)
	if !ok {
		return nil, domain.Validation("$group expects an object")
	}
	rawID, ok := doc["_id"]
	if !ok {
		return nil, domain.Validation("$group requires an _id")
	}

	var group Group
	if rawID != nil {
		id, err := CompileExpression(rawID)
		if err != nil {
			return nil, err
		}
		group.ID = id
	}

	for _, field := range sortedFields(doc) {
		if field == "_id" {
			continue
		}
		accDoc, ok := domain.AsDocument(doc[field])
		if !ok || len(accDoc) != 1 {
			return nil, domain.Validation("accumulator %q must be an object with one operator", field)
		}
		for op, arg := range accDoc {
			acc := Accumulator{Field: field, Op: AccumulatorOp(op)}
			if acc.Op != AccCount {
				expr, err := CompileExpression(arg)
				if err != nil {
					return nil, err
				}
				acc.Expr = expr
			}
			group.Accumulators = append(group.Accumulators, acc)
		}
	}
	return group, nil
}

// parseSort accepts {"field": 1} or, for several keys, a list of
// single-key objects so the key order survives decoding.
func parseSort(body interface{}) (Stage, error) {
	var entries []domain.Document
	if list, ok := domain.AsList(body); ok {
		for _, elem := range list {
			doc, ok := domain.AsDocument(elem)
			if !ok {
				return nil, domain.Validation("$sort list entries must be objects")
			}
			entries = append(entries, doc)
		}
	} else if doc, ok := domain.AsDocument(body); ok {
		if len(doc) > 1 {
			return nil, domain.Validation("$sort with several keys must use the list form")
		}
		entries = append(entries, doc)
	} else {
		return nil, domain.Validation("$sort expects an object or a list of objects")
	}

	var s Sort
	for _, entry := range entries {
		if len(entry) != 1 {
			return nil, domain.Validation("$sort list entries must have exactly one key")
		}
		for field, dir := range entry {
			n, ok := domain.ToInt64(dir)
			if !ok {
				if f, isFloat := domain.ToFloat64(dir); isFloat {
					n, ok = int64(f), true
				}
			}
			if !ok || (n != 1 && n != -1) {
				return nil, domain.Validation("sort direction for %q must be 1 or -1", field)
			}
			s.Keys = append(s.Keys, SortKey{Field: field, Descending: n == -1})
		}
	}
	return s, nil
}

func parseProject(body interface{}) (Stage, error) {
	doc, ok := domain.AsDocument(body)
	if !ok {
		return nil, domain.Validation("$project expects an object")
	}
	var p Project
	for _, field := range sortedFields(doc) {
		value := doc[field]
		switch v := value.(type) {
		case bool:
			p.Fields = append(p.Fields, flag(field, v))
			continue
		}
		if n, ok := domain.ToFloat64(value); ok {
			p.Fields = append(p.Fields, flag(field, n != 0))
			continue
		}
		expr, err := CompileExpression(value)
		if err != nil {
			return nil, err
		}
		p.Fields = append(p.Fields, Computed(field, expr))
	}
	return p, nil
}

func flag(field string, include bool) Projection {
	if include {
		return Include(field)
	}
	return Exclude(field)
}

func parseUnwind(body interface{}) (Stage, error) {
	if path, ok := body.(string); ok {
		if !strings.HasPrefix(path, "$") {
			return nil, domain.Validation("$unwind path must start with '$'")
		}
		return UnwindField(path), nil
	}
	doc, ok := domain.AsDocument(body)
	if !ok {
		return nil, domain.Validation("$unwind expects a path or an object")
	}
	path, _ := doc["path"].(string)
	if !strings.HasPrefix(path, "$") {
		return nil, domain.Validation("$unwind path must start with '$'")
	}
	u := UnwindField(path)
	if idx, ok := doc["includeArrayIndex"]; ok {
		s, isString := idx.(string)
		if !isString {
			return nil, domain.Validation("includeArrayIndex must be a string")
		}
		u.IncludeArrayIndex = s
	}
	if preserve, ok := doc["preserveNullAndEmptyArrays"]; ok {
		b, isBool := preserve.(bool)
		if !isBool {
			return nil, domain.Validation("preserveNullAndEmptyArrays must be a boolean")
		}
		u.PreserveNullAndEmpty = b
	}
	return u, nil
}

func parseLookup(body interface{}) (Stage, error) {
	doc, ok := domain.AsDocument(body)
	if !ok {
		return nil, domain.Validation("$lookup expects an object")
	}
	str := func(key string) (string, error) {
		v, ok := doc[key].(string)
		if !ok || v == "" {
			return "", domain.Validation("$lookup requires a string %s", key)
		}
		return v, nil
	}
	var l Lookup
	var err error
	if l.From, err = str("from"); err != nil {
		return nil, err
	}
	if l.LocalField, err = str("localField"); err != nil {
		return nil, err
	}
	if l.ForeignField, err = str("foreignField"); err != nil {
		return nil, err
	}
	if l.As, err = str("as"); err != nil {
		return nil, err
	}
	return l, nil
}

func allOperators(doc domain.Document) bool {
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func sortedFields(doc domain.Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
