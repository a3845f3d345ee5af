package registry

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-market/conduit"
)

func desc(id, method, path string) conduit.ResourceDescriptor {
	return conduit.ResourceDescriptor{
		ID:       id,
		Name:     id,
		Category: "Data",
		Price:    conduit.Price{Amount: "0.01", Currency: "STX"},
		Method:   method,
		Path:     path,
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name      string
		resources []conduit.ResourceDescriptor
		wantErr   string
	}{
		{
			name:      "empty id",
			resources: []conduit.ResourceDescriptor{desc("", "GET", "/a")},
			wantErr:   "empty id",
		},
		{
			name: "duplicate id",
			resources: []conduit.ResourceDescriptor{
				desc("a", "GET", "/a"),
				desc("a", "GET", "/b"),
			},
			wantErr: "duplicate resource id",
		},
		{
			name: "duplicate route",
			resources: []conduit.ResourceDescriptor{
				desc("a", "GET", "/same"),
				desc("b", "GET", "/same"),
			},
			wantErr: "duplicate route",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.resources...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistrySameMethodDifferentPath(t *testing.T) {
	r, err := New(desc("a", "GET", "/a"), desc("b", "POST", "/a"))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryLookup(t *testing.T) {
	r, err := New(desc("weather", "GET", "/api/v1/weather"), desc("sentiment", "POST", "/api/v1/sentiment"))
	require.NoError(t, err)

	res, ok := r.Lookup("weather")
	require.True(t, ok)
	assert.Equal(t, "weather", res.ID)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)

	res, ok = r.LookupRoute(http.MethodPost, "/api/v1/sentiment")
	require.True(t, ok)
	assert.Equal(t, "sentiment", res.ID)

	_, ok = r.LookupRoute(http.MethodGet, "/api/v1/sentiment")
	assert.False(t, ok, "method is part of the route identity")
}

func TestRegistryListIsACopy(t *testing.T) {
	r, err := New(desc("a", "GET", "/a"))
	require.NoError(t, err)

	list := r.List()
	list[0].ID = "mutated"

	res, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", res.ID)
}

func TestRegistryFirstPreservesInsertionOrder(t *testing.T) {
	r, err := New(desc("second", "GET", "/b"), desc("first", "GET", "/a"))
	require.NoError(t, err)

	res, ok := r.First()
	require.True(t, ok)
	assert.Equal(t, "second", res.ID)

	empty, err := New()
	require.NoError(t, err)
	_, ok = empty.First()
	assert.False(t, ok)
}

func TestDefaultCatalog(t *testing.T) {
	r := Default()

	assert.Equal(t, 8, r.Len())

	oracle, ok := r.Lookup("price-oracle")
	require.True(t, ok)
	assert.Equal(t, "0.005", oracle.Price.Amount)
	assert.Equal(t, "STX", oracle.Price.Currency)
	assert.Equal(t, http.MethodGet, oracle.Method)
	assert.Equal(t, "/api/v1/price", oracle.Path)
	assert.False(t, oracle.Free())

	assert.Equal(t, []string{"Data", "AI/ML", "DeFi", "Developer"}, r.Categories())

	for _, res := range r.List() {
		assert.NotEmpty(t, res.ParamSchema, "resource %s carries a parameter schema", res.ID)
	}
}
