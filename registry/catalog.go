package registry

import (
	"encoding/json"

	"github.com/conduit-market/conduit"
)

func schema(s string) json.RawMessage { return json.RawMessage(s) }

// Default returns the stock Conduit catalog: eight priced resources across
// Data, AI/ML, DeFi and Developer categories.
func Default() *Registry {
	r, err := New(
		conduit.ResourceDescriptor{
			ID:          "weather",
			Name:        "Weather Intelligence",
			Description: "Real-time weather data, 5-day forecasts, and climate analytics for any global location.",
			Category:    "Data",
			Icon:        "🌤️",
			Price:       conduit.Price{Amount: "0.01", Currency: "STX"},
			Method:      "GET",
			Path:        "/api/v1/weather",
			Params:      map[string]string{"location": "string — city name or coordinates"},
			ParamSchema: schema(`{"type":"object","properties":{"location":{"type":"string"}}}`),
			Latency:     "~120ms",
			Uptime:      "99.9%",
		},
		conduit.ResourceDescriptor{
			ID:          "sentiment",
			Name:        "Sentiment Analysis",
			Description: "NLP-powered sentiment scoring with emotion detection for text, reviews, and social data.",
			Category:    "AI/ML",
			Icon:        "🧠",
			Price:       conduit.Price{Amount: "0.02", Currency: "STX"},
			Method:      "POST",
			Path:        "/api/v1/sentiment",
			Params:      map[string]string{"text": "string — content to analyze"},
			ParamSchema: schema(`{"type":"object","properties":{"text":{"type":"string"}}}`),
			Latency:     "~250ms",
			Uptime:      "99.7%",
		},
		conduit.ResourceDescriptor{
			ID:          "translate",
			Name:        "Neural Translator",
			Description: "Context-aware neural translation across 100+ languages with confidence scoring.",
			Category:    "AI/ML",
			Icon:        "🌍",
			Price:       conduit.Price{Amount: "0.015", Currency: "STX"},
			Method:      "POST",
			Path:        "/api/v1/translate",
			Params:      map[string]string{"text": "string", "from": "string", "to": "string"},
			ParamSchema: schema(`{"type":"object","properties":{"text":{"type":"string"},"from":{"type":"string"},"to":{"type":"string"}}}`),
			Latency:     "~180ms",
			Uptime:      "99.8%",
		},
		conduit.ResourceDescriptor{
			ID:          "price-oracle",
			Name:        "Crypto Price Oracle",
			Description: "Real-time prices, 24h stats, sparkline data, and market analytics for 5000+ tokens.",
			Category:    "DeFi",
			Icon:        "📊",
			Price:       conduit.Price{Amount: "0.005", Currency: "STX"},
			Method:      "GET",
			Path:        "/api/v1/price",
			Params:      map[string]string{"symbol": "string — e.g. BTC, ETH, STX"},
			ParamSchema: schema(`{"type":"object","properties":{"symbol":{"type":"string"}}}`),
			Latency:     "~80ms",
			Uptime:      "99.95%",
		},
		conduit.ResourceDescriptor{
			ID:          "image-gen",
			Name:        "Image Generation",
			Description: "Generate high-quality images from text prompts using state-of-the-art diffusion models.",
			Category:    "AI/ML",
			Icon:        "🎨",
			Price:       conduit.Price{Amount: "0.05", Currency: "STX"},
			Method:      "POST",
			Path:        "/api/v1/generate-image",
			Params:      map[string]string{"prompt": "string", "style": "realistic | anime | abstract"},
			ParamSchema: schema(`{"type":"object","properties":{"prompt":{"type":"string"},"style":{"type":"string","enum":["realistic","anime","abstract"]}}}`),
			Latency:     "~3.5s",
			Uptime:      "99.5%",
		},
		conduit.ResourceDescriptor{
			ID:          "code-review",
			Name:        "Code Review",
			Description: "Automated code analysis with security auditing, quality scoring, and optimization tips.",
			Category:    "Developer",
			Icon:        "🔍",
			Price:       conduit.Price{Amount: "0.03", Currency: "STX"},
			Method:      "POST",
			Path:        "/api/v1/code-review",
			Params:      map[string]string{"code": "string", "language": "string"},
			ParamSchema: schema(`{"type":"object","properties":{"code":{"type":"string"},"language":{"type":"string"}}}`),
			Latency:     "~1.2s",
			Uptime:      "99.6%",
		},
		conduit.ResourceDescriptor{
			ID:          "news-feed",
			Name:        "News Aggregator",
			Description: "AI-curated news with topic filtering, summarization, and relevance scoring.",
			Category:    "Data",
			Icon:        "📰",
			Price:       conduit.Price{Amount: "0.008", Currency: "STX"},
			Method:      "GET",
			Path:        "/api/v1/news",
			Params:      map[string]string{"topic": "string", "limit": "number"},
			ParamSchema: schema(`{"type":"object","properties":{"topic":{"type":"string"},"limit":{"type":"string","pattern":"^[0-9]*$"}}}`),
			Latency:     "~200ms",
			Uptime:      "99.8%",
		},
		conduit.ResourceDescriptor{
			ID:          "chain-analytics",
			Name:        "Chain Analytics",
			Description: "Stacks blockchain intelligence — wallet profiles, contract analysis, on-chain metrics.",
			Category:    "DeFi",
			Icon:        "⛓️",
			Price:       conduit.Price{Amount: "0.02", Currency: "STX"},
			Method:      "GET",
			Path:        "/api/v1/chain-analytics",
			Params:      map[string]string{"address": "string — Stacks address"},
			ParamSchema: schema(`{"type":"object","properties":{"address":{"type":"string"}}}`),
			Latency:     "~350ms",
			Uptime:      "99.7%",
		},
	)
	if err != nil {
		// The stock catalog is defined above; an error here is a programming bug.
		panic(err)
	}
	return r
}
