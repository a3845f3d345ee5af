package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-market/conduit"
	"github.com/conduit-market/conduit/registry"
)

func TestSelect(t *testing.T) {
	catalog := registry.Default().List()

	tests := []struct {
		name string
		task string
		want string
	}{
		{"price question", "What's the price of Bitcoin?", "price-oracle"},
		{"weather question", "What's the weather forecast for Tokyo?", "weather"},
		{"sentiment request", "What's the sentiment and emotion of this comment?", "sentiment"},
		{"translation request", "Translate this paragraph into another language", "translate"},
		{"image request", "Generate an image of a sunset", "image-gen"},
		{"code request", "Review my code for security issues", "code-review"},
		{"news request", "Show me the latest news headlines", "news-feed"},
		{"on-chain request", "Give me on-chain analytics for this wallet", "chain-analytics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Select(catalog, DefaultKeywords, tt.task)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.ID)
		})
	}
}

func TestSelectFallsBackToFirstResource(t *testing.T) {
	catalog := registry.Default().List()

	t.Run("no keyword matches", func(t *testing.T) {
		res, ok := Select(catalog, DefaultKeywords, "please make me a sandwich")
		require.True(t, ok)
		assert.Equal(t, catalog[0].ID, res.ID)
	})

	t.Run("tied scores", func(t *testing.T) {
		keywords := map[string][]string{
			"weather":   {"report"},
			"sentiment": {"report"},
		}
		res, ok := Select(catalog, keywords, "give me a report")
		require.True(t, ok)
		assert.Equal(t, catalog[0].ID, res.ID, "a tie is not a winner")
	})
}

func TestSelectEmptyCatalog(t *testing.T) {
	_, ok := Select(nil, DefaultKeywords, "anything")
	assert.False(t, ok)
}

func TestSelectCaseInsensitive(t *testing.T) {
	catalog := registry.Default().List()
	res, ok := Select(catalog, DefaultKeywords, "WHAT IS THE WEATHER LIKE?")
	require.True(t, ok)
	assert.Equal(t, "weather", res.ID)
}

func TestSelectStrictlyHighestScoreWins(t *testing.T) {
	catalog := []conduit.ResourceDescriptor{
		{ID: "a", Method: "GET", Path: "/a"},
		{ID: "b", Method: "GET", Path: "/b"},
	}
	keywords := map[string][]string{
		"a": {"alpha"},
		"b": {"alpha", "beta"},
	}
	res, ok := Select(catalog, keywords, "alpha beta")
	require.True(t, ok)
	assert.Equal(t, "b", res.ID)
}
