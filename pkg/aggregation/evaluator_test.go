package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesCollections() map[string][]domain.Document {
	return map[string][]domain.Document{
		"sales": docs(
			domain.Document{"_id": "s1", "product_id": "P1", "quantity": int64(2), "price": int64(10)},
			domain.Document{"_id": "s2", "product_id": "P1", "quantity": int64(1), "price": int64(10)},
			domain.Document{"_id": "s3", "product_id": "P2", "quantity": int64(5), "price": int64(2)},
		),
		"products": docs(
			domain.Document{"_id": "P1", "name": "Widget"},
			domain.Document{"_id": "P2", "name": "Gadget"},
		),
	}
}

func revenuePipeline() []Stage {
	return []Stage{
		GroupBy(Field("product_id"), Sum("totalRevenue", Multiply(Field("quantity"), Field("price")))),
		SortBy(Desc("totalRevenue")),
		Lookup{From: "products", LocalField: "_id", ForeignField: "_id", As: "product"},
		UnwindField("product"),
		ProjectFields(
			Exclude("_id"),
			Computed("product_id", Field("_id")),
			Computed("product_name", Field("product.name")),
			Include("totalRevenue"),
		),
	}
}

func TestEvaluator_Run(t *testing.T) {
	e := NewEvaluator(newMemProvider(salesCollections()))

	out, err := e.Run(context.Background(), "sales", revenuePipeline())
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{"product_id": "P1", "product_name": "Widget", "totalRevenue": int64(30)},
		{"product_id": "P2", "product_name": "Gadget", "totalRevenue": int64(10)},
	}, out)
}

func TestEvaluator_GroupAndSortRevenue(t *testing.T) {
	revenue := GroupBy(Field("product_id"), Sum("totalRevenue", Multiply(Field("quantity"), Field("price"))))
	reversed := salesCollections()
	sales := reversed["sales"]
	reversed["sales"] = docs(sales[2], sales[1], sales[0])

	tests := []struct {
		name        string
		collections map[string][]domain.Document
		stages      []Stage
		expected    []domain.Document
	}{
		{
			name:        "group keeps first-seen order",
			collections: reversed,
			stages:      []Stage{revenue},
			expected: []domain.Document{
				{"_id": "P2", "totalRevenue": int64(10)},
				{"_id": "P1", "totalRevenue": int64(30)},
			},
		},
		{
			name:        "group then sort descending",
			collections: salesCollections(),
			stages:      []Stage{revenue, SortBy(Desc("totalRevenue"))},
			expected: []domain.Document{
				{"_id": "P1", "totalRevenue": int64(30)},
				{"_id": "P2", "totalRevenue": int64(10)},
			},
		},
		{
			name:        "sort reorders reversed input",
			collections: reversed,
			stages:      []Stage{revenue, SortBy(Desc("totalRevenue"))},
			expected: []domain.Document{
				{"_id": "P1", "totalRevenue": int64(30)},
				{"_id": "P2", "totalRevenue": int64(10)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEvaluator(newMemProvider(tt.collections)).Run(context.Background(), "sales", tt.stages)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestEvaluator_EmptyPipelineReturnsCollection(t *testing.T) {
	e := NewEvaluator(newMemProvider(salesCollections()))
	out, err := e.Run(context.Background(), "sales", nil)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestEvaluator_IsIdempotentAndDoesNotMutateInput(t *testing.T) {
	p := newMemProvider(salesCollections())
	before := make([]domain.Document, len(p.collections["sales"]))
	for i, d := range p.collections["sales"] {
		before[i] = d.Clone()
	}

	e := NewEvaluator(p)
	pipeline := append([]Stage{Unwind{Path: "tags", PreserveNullAndEmpty: true, IncludeArrayIndex: "i"}}, revenuePipeline()...)

	first, err := e.Run(context.Background(), "sales", pipeline)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), "sales", pipeline)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, p.collections["sales"])
}

func TestEvaluator_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *memProvider
		coll     string
		stages   []Stage
		kind     domain.ErrorKind
	}{
		{
			name:     "unknown collection",
			provider: newMemProvider(salesCollections()),
			coll:     "missing",
			kind:     domain.KindNotFound,
		},
		{
			name:     "unknown lookup target",
			provider: newMemProvider(salesCollections()),
			coll:     "sales",
			stages:   []Stage{Lookup{From: "ghosts", LocalField: "a", ForeignField: "b", As: "c"}},
			kind:     domain.KindNotFound,
		},
		{
			name:     "invalid stage",
			provider: newMemProvider(salesCollections()),
			coll:     "sales",
			stages:   []Stage{SortBy()},
			kind:     domain.KindValidation,
		},
		{
			name:     "empty collection name",
			provider: newMemProvider(salesCollections()),
			kind:     domain.KindValidation,
		},
		{
			name:     "stage failure",
			provider: newMemProvider(salesCollections()),
			coll:     "sales",
			stages:   []Stage{ProjectFields(Computed("r", Divide(Field("price"), Lit(0))))},
			kind:     domain.KindEvaluation,
		},
		{
			name:     "provider failure",
			provider: &memProvider{err: errors.New("connection refused")},
			coll:     "sales",
			kind:     domain.KindProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEvaluator(tt.provider).Run(context.Background(), tt.coll, tt.stages)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.kind, domain.KindOfError(err))
		})
	}
}

func TestEvaluator_ContextCancellation(t *testing.T) {
	e := NewEvaluator(newMemProvider(salesCollections()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, "sales", revenuePipeline())
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err = e.Run(ctx, "sales", revenuePipeline())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEvaluator_Apply(t *testing.T) {
	e := NewEvaluator(newMemProvider(salesCollections()))
	out, err := e.Apply(context.Background(), docs(
		domain.Document{"v": int64(2)},
		domain.Document{"v": int64(1)},
	), []Stage{SortBy(Asc("v"))})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, field(out, "v"))
}

func TestPipeline_Validate(t *testing.T) {
	err := Pipeline{Where(), nil}.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	err = Pipeline{Where(), GroupBy(nil, Count("_id"))}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 1 ($group)")
}
