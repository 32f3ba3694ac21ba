package aggregation

import (
	"context"
	"testing"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productCatalog() map[string][]domain.Document {
	return map[string][]domain.Document{
		"products": docs(
			domain.Document{"_id": "P1", "name": "Widget", "tags": []interface{}{"t1", "t2"}},
			domain.Document{"_id": "P2", "name": "Gadget", "tags": []interface{}{"t2"}},
			domain.Document{"_id": "P3", "name": "Gizmo"},
		),
	}
}

func newRun(p domain.CollectionProvider) *execution {
	return &execution{provider: p, fetched: make(map[string][]domain.Document)}
}

func TestLookup_Apply(t *testing.T) {
	tests := []struct {
		name     string
		lookup   Lookup
		input    domain.Document
		expected []interface{}
	}{
		{
			name:     "single match",
			lookup:   Lookup{From: "products", LocalField: "_id", ForeignField: "_id", As: "product"},
			input:    domain.Document{"_id": "P2"},
			expected: []interface{}{"Gadget"},
		},
		{
			name:     "no match yields empty list",
			lookup:   Lookup{From: "products", LocalField: "_id", ForeignField: "_id", As: "product"},
			input:    domain.Document{"_id": "P9"},
			expected: []interface{}{},
		},
		{
			name:     "foreign list matches element-wise",
			lookup:   Lookup{From: "products", LocalField: "tag", ForeignField: "tags", As: "product"},
			input:    domain.Document{"tag": "t2"},
			expected: []interface{}{"Widget", "Gadget"},
		},
		{
			name:     "local list matches any element in foreign order",
			lookup:   Lookup{From: "products", LocalField: "ids", ForeignField: "_id", As: "product"},
			input:    domain.Document{"ids": []interface{}{"P3", "P1"}},
			expected: []interface{}{"Widget", "Gizmo"},
		},
		{
			name:     "absent local joins foreign docs missing the field",
			lookup:   Lookup{From: "products", LocalField: "tag", ForeignField: "tags", As: "product"},
			input:    domain.Document{},
			expected: []interface{}{"Gizmo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.lookup.apply(context.Background(), newRun(newMemProvider(productCatalog())), docs(tt.input))
			require.NoError(t, err)
			require.Len(t, out, 1)

			joined, ok := out[0][tt.lookup.As].([]interface{})
			require.True(t, ok, "joined field must be a list")
			names := make([]interface{}, len(joined))
			for i, j := range joined {
				names[i] = j.(domain.Document)["name"]
			}
			assert.Equal(t, tt.expected, names)

			_, mutated := tt.input[tt.lookup.As]
			assert.False(t, mutated)
		})
	}
}

func TestLookup_UnknownCollection(t *testing.T) {
	l := Lookup{From: "nope", LocalField: "a", ForeignField: "b", As: "c"}

	for _, input := range [][]domain.Document{nil, docs(domain.Document{"a": int64(1)})} {
		_, err := l.apply(context.Background(), newRun(newMemProvider(productCatalog())), input)
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
	}
}

func TestLookup_FetchesForeignCollectionOnce(t *testing.T) {
	p := newMemProvider(productCatalog())
	input := docs(
		domain.Document{"pid": "P1"},
		domain.Document{"pid": "P2"},
		domain.Document{"pid": "P1"},
	)
	run := newRun(p)
	l := Lookup{From: "products", LocalField: "pid", ForeignField: "_id", As: "p"}

	_, err := l.apply(context.Background(), run, input)
	require.NoError(t, err)
	_, err = l.apply(context.Background(), run, input)
	require.NoError(t, err)
	assert.Equal(t, 1, p.fetches["products"])
}

func TestLookup_UsesFieldIndex(t *testing.T) {
	p := &indexedProvider{
		memProvider: newMemProvider(productCatalog()),
		indexed:     map[string]bool{"products._id": true},
	}
	l := Lookup{From: "products", LocalField: "pid", ForeignField: "_id", As: "p"}

	out, err := l.apply(context.Background(), newRun(p), docs(
		domain.Document{"pid": "P3"},
		domain.Document{"pid": "P0"},
		domain.Document{"pid": []interface{}{"P1", "P2"}},
	))
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Len(t, out[0]["p"], 1)
	assert.Equal(t, []interface{}{}, out[1]["p"])
	assert.Len(t, out[2]["p"], 2)
	assert.Equal(t, 2, p.finds)
	assert.Equal(t, 1, p.fetches["products"], "list keys fall back to the hash join")
}

func TestLookup_Validate(t *testing.T) {
	valid := Lookup{From: "a", LocalField: "b", ForeignField: "c", As: "d"}
	require.NoError(t, valid.Validate())

	for _, broken := range []Lookup{
		{LocalField: "b", ForeignField: "c", As: "d"},
		{From: "a", ForeignField: "c", As: "d"},
		{From: "a", LocalField: "b", As: "d"},
		{From: "a", LocalField: "b", ForeignField: "c"},
	} {
		err := broken.Validate()
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	}
}
