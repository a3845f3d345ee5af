package client

import (
	"strings"

	"github.com/conduit-market/conduit"
)

// DefaultKeywords maps resource ids to the task keywords used by Select.
// A real agent would use an LLM here; keyword counting is a deliberate
// best-effort heuristic.
var DefaultKeywords = map[string][]string{
	"weather":         {"weather", "temperature", "forecast", "climate"},
	"sentiment":       {"sentiment", "feeling", "emotion", "opinion", "analyze text"},
	"translate":       {"translate", "language", "translation"},
	"price-oracle":    {"price", "crypto", "market", "token", "btc", "stx", "eth"},
	"image-gen":       {"image", "picture", "generate", "create art", "visual"},
	"code-review":     {"code", "review", "security", "bug", "optimize"},
	"news-feed":       {"news", "article", "headline", "current events"},
	"chain-analytics": {"blockchain", "chain", "wallet", "analytics", "on-chain"},
}

// Select picks the resource whose keyword set best matches the task string.
// Score is the number of a resource's keywords contained in the lowercased
// task; the strictly highest score wins. Ties and zero scores fall back to
// the first resource in catalog order — an intentional default, not an
// error. Returns false only for an empty catalog.
func Select(resources []conduit.ResourceDescriptor, keywords map[string][]string, task string) (conduit.ResourceDescriptor, bool) {
	if len(resources) == 0 {
		return conduit.ResourceDescriptor{}, false
	}

	taskLower := strings.ToLower(task)
	best := -1
	bestScore := 0
	tied := false

	for i, res := range resources {
		score := 0
		for _, word := range keywords[res.ID] {
			if strings.Contains(taskLower, word) {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = i, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if best < 0 || tied {
		return resources[0], true
	}
	return resources[best], true
}
