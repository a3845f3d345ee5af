// Package handlers contains the resource handlers behind the payment
// gateway. Each handler is a pure generator from validated parameters to a
// response payload; none of them perform I/O, and none of them know
// anything about payments.
package handlers

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Func produces a resource payload from request parameters. The gateway has
// already authorized and billed the call by the time a Func runs, so a Func
// error is reported as a resource failure, never refunded.
type Func func(params map[string]interface{}) (interface{}, error)

// Set holds the stock handlers keyed by resource id. Randomness flows from
// a single seeded source so tests can pin outputs.
type Set struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a handler set with the given seed.
func New(seed int64) *Set {
	return &Set{rng: rand.New(rand.NewSource(seed))}
}

// Default creates a handler set seeded from the clock.
func Default() *Set {
	return New(time.Now().UnixNano())
}

// Lookup returns the handler registered for a resource id.
func (s *Set) Lookup(resourceID string) (Func, bool) {
	switch resourceID {
	case "weather":
		return s.Weather, true
	case "sentiment":
		return s.Sentiment, true
	case "translate":
		return s.Translate, true
	case "price-oracle":
		return s.Price, true
	case "image-gen":
		return s.GenerateImage, true
	case "code-review":
		return s.CodeReview, true
	case "news-feed":
		return s.News, true
	case "chain-analytics":
		return s.ChainAnalytics, true
	default:
		return nil, false
	}
}

func (s *Set) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Set) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func str(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

var weatherConditions = []string{"Sunny", "Partly Cloudy", "Cloudy", "Rain", "Thunderstorm", "Snow", "Clear"}

// Weather returns current conditions and a 5-day forecast for a location.
func (s *Set) Weather(params map[string]interface{}) (interface{}, error) {
	location := str(params, "location", "New York")
	temp := 15 + s.intn(26)

	forecast := make([]map[string]interface{}, 0, 5)
	for i := 1; i <= 5; i++ {
		forecast = append(forecast, map[string]interface{}{
			"day":       time.Now().AddDate(0, 0, i).Format("Mon"),
			"high":      temp + s.intn(9) - 4,
			"low":       temp - 5 + s.intn(5) - 2,
			"condition": weatherConditions[s.intn(len(weatherConditions))],
		})
	}

	return map[string]interface{}{
		"location": location,
		"current": map[string]interface{}{
			"temperature": map[string]int{"celsius": temp, "fahrenheit": temp*9/5 + 32},
			"condition":   weatherConditions[s.intn(len(weatherConditions))],
			"humidity":    40 + s.intn(51),
			"windSpeed":   map[string]int{"kmh": 5 + s.intn(31)},
			"uvIndex":     1 + s.intn(10),
			"pressure":    1000 + s.intn(31),
		},
		"forecast":  forecast,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

var (
	positiveWords = []string{"great", "good", "amazing", "excellent", "love", "revolutionary", "innovative", "best"}
	negativeWords = []string{"bad", "terrible", "awful", "hate", "worst", "poor", "broken"}
)

// Sentiment scores a text as positive, negative or neutral with a toy
// emotion breakdown.
func (s *Set) Sentiment(params map[string]interface{}) (interface{}, error) {
	text := str(params, "text", "x402 is revolutionizing payments on the internet!")
	words := strings.Fields(strings.ToLower(text))

	var pos, neg int
	for _, w := range words {
		for _, pw := range positiveWords {
			if strings.Contains(w, pw) {
				pos++
				break
			}
		}
		for _, nw := range negativeWords {
			if strings.Contains(w, nw) {
				neg++
				break
			}
		}
	}

	count := len(words)
	if count == 0 {
		count = 1
	}
	score := float64(pos-neg)/float64(count)*5 + 0.5
	sentiment := "neutral"
	switch {
	case score > 0.3:
		sentiment = "positive"
	case score < -0.3:
		sentiment = "negative"
	}

	confidence := 0.6 + abs(score)*0.3
	if confidence > 0.99 {
		confidence = 0.99
	}

	if len(text) > 500 {
		text = text[:500]
	}
	return map[string]interface{}{
		"text":       text,
		"sentiment":  sentiment,
		"confidence": round3(confidence),
		"score":      round3(score),
		"emotions": map[string]float64{
			"joy":   round3(emotionLevel(s, sentiment == "positive", 0.5, 0.4, 0.3)),
			"anger": round3(emotionLevel(s, sentiment == "negative", 0.3, 0.4, 0.1)),
			"trust": round3(emotionLevel(s, sentiment == "positive", 0.4, 0.4, 0.3)),
		},
		"wordCount": len(words),
		"model":     "sentiment-xl-v3",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func emotionLevel(s *Set, dominant bool, base, spread, idle float64) float64 {
	if dominant {
		return base + s.float()*spread
	}
	return s.float() * idle
}

var canned = map[string]string{
	"es": "¡Hola, mundo!",
	"fr": "Bonjour, le monde!",
	"de": "Hallo, Welt!",
	"ja": "こんにちは、世界！",
	"zh": "你好，世界！",
	"ko": "안녕하세요, 세계!",
	"pt": "Olá, mundo!",
}

// Translate returns a canned translation for the stock phrase and a tagged
// passthrough for everything else.
func (s *Set) Translate(params map[string]interface{}) (interface{}, error) {
	text := str(params, "text", "Hello, world!")
	from := str(params, "from", "en")
	to := str(params, "to", "es")

	result := "[" + strings.ToUpper(to) + "] " + text
	if text == "Hello, world!" {
		if t, ok := canned[to]; ok {
			result = t
		}
	}

	return map[string]interface{}{
		"original":   map[string]string{"text": text, "language": from},
		"translated": map[string]string{"text": result, "language": to},
		"confidence": round3(0.85 + s.float()*0.14),
		"model":      "neural-translate-v4",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

var basePrices = map[string]float64{
	"BTC": 97500, "ETH": 3200, "STX": 1.85, "SOL": 195, "DOGE": 0.32,
	"ADA": 0.95, "DOT": 8.5, "AVAX": 38.5, "SBTC": 97500,
}

// Price quotes a symbol with 24h stats and a sparkline.
func (s *Set) Price(params map[string]interface{}) (interface{}, error) {
	symbol := strings.ToUpper(str(params, "symbol", "STX"))

	base, known := basePrices[symbol]
	if !known {
		base = 10 + s.float()*100
	}
	price := base + base*(s.float()*0.04-0.02)

	sparkline := make([]float64, 24)
	for i := range sparkline {
		sparkline[i] = round6(price * (0.97 + s.float()*0.06))
	}

	return map[string]interface{}{
		"symbol":      symbol,
		"price":       round6(price),
		"change24h":   round3(s.float()*10 - 5),
		"volume24h":   1_000_000 + s.intn(50_000_000),
		"marketCap":   int64(price * float64(1_000_000+s.intn(100_000_000))),
		"high24h":     round6(price * 1.03),
		"low24h":      round6(price * 0.97),
		"sparkline":   sparkline,
		"lastUpdated": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GenerateImage returns a deterministic placeholder image URL for a prompt.
func (s *Set) GenerateImage(params map[string]interface{}) (interface{}, error) {
	prompt := str(params, "prompt", "A futuristic city on the blockchain")
	style := str(params, "style", "realistic")

	seed := prompt
	if len(seed) > 30 {
		seed = seed[:30]
	}
	return map[string]interface{}{
		"prompt":         prompt,
		"style":          style,
		"imageUrl":       fmt.Sprintf("https://picsum.photos/seed/%s/1024/1024", sanitizeSeed(seed)),
		"dimensions":     "1024x1024",
		"generationTime": "3.2s",
		"model":          "sdxl-v2",
	}, nil
}

func sanitizeSeed(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// CodeReview scores a code snippet and reports toy findings.
func (s *Set) CodeReview(params map[string]interface{}) (interface{}, error) {
	code := str(params, "code", `console.log("hello")`)
	language := str(params, "language", "javascript")

	issues := []map[string]interface{}{
		{"severity": "warning", "message": "Consider using const for non-reassigned variables", "line": 1},
		{"severity": "info", "message": "Add error handling for async operations", "line": 1},
	}
	return map[string]interface{}{
		"language":      language,
		"linesOfCode":   len(strings.Split(code, "\n")),
		"qualityScore":  70 + s.intn(26),
		"securityScore": 75 + s.intn(21),
		"issues":        issues[:1+s.intn(2)],
		"suggestions":   []string{"Add input validation", "Implement retry logic for network calls"},
		"bestPractices": map[string]int{"passed": 8 + s.intn(5), "total": 12},
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

var headlines = map[string][]string{
	"blockchain": {
		"Stacks Network Hits Record Transaction Volume as x402 Protocol Gains Traction",
		"Bitcoin Layer-2 Solutions See Surge in Developer Activity",
		"DeFi on Stacks: TVL Crosses $500M Milestone",
		"AI Agents Now Autonomously Trading Using x402 Payment Protocol",
		"sBTC Launch Brings Bitcoin Programmability to New Heights",
		"Web3 Payments: How HTTP 402 is Changing the Internet",
	},
	"crypto": {
		"Bitcoin Surpasses $100K as Institutional Demand Grows",
		"Stacks STX Token Shows Strong Recovery in Q1 2026",
		"Layer-2 Solutions Battle for Bitcoin DeFi Dominance",
		"Global Crypto Adoption Rate Hits 15% of World Population",
	},
	"ai": {
		"AI Agents Begin Autonomous Commerce Using Cryptocurrency",
		"Machine Learning Models Now Pay for Their Own API Access",
		"AI-Powered Trading Bots Generate $1B in Daily Volume",
	},
}

var newsSources = []string{"TechCrunch", "CoinDesk", "The Block", "Decrypt", "Ars Technica"}

// News returns curated headlines for a topic, capped at 20 articles.
func (s *Set) News(params map[string]interface{}) (interface{}, error) {
	topic := str(params, "topic", "blockchain")
	limit := 5
	if v := str(params, "limit", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 20 {
		limit = 20
	}

	titles, ok := headlines[topic]
	if !ok {
		titles = headlines["blockchain"]
	}
	if limit > len(titles) {
		limit = len(titles)
	}

	articles := make([]map[string]interface{}, 0, limit)
	for i, title := range titles[:limit] {
		articles = append(articles, map[string]interface{}{
			"title":          title,
			"summary":        fmt.Sprintf("%s. A significant development with broad implications for the %s ecosystem.", title, topic),
			"source":         newsSources[i%len(newsSources)],
			"publishedAt":    time.Now().Add(-time.Duration(s.float() * 3 * 24 * float64(time.Hour))).UTC().Format(time.RFC3339),
			"relevanceScore": round3(0.75 + s.float()*0.24),
		})
	}

	return map[string]interface{}{
		"topic":        topic,
		"totalResults": len(articles),
		"articles":     articles,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ChainAnalytics profiles a wallet address with toy on-chain metrics.
func (s *Set) ChainAnalytics(params map[string]interface{}) (interface{}, error) {
	address := str(params, "address", "SP1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRCBGD7R")

	return map[string]interface{}{
		"address": address,
		"balance": map[string]string{
			"stx":  fmt.Sprintf("%.6f", 100+s.float()*10000),
			"sbtc": fmt.Sprintf("%.8f", s.float()*0.5),
		},
		"totalTransactions": 50 + s.intn(501),
		"contractsDeployed": s.intn(16),
		"activity": map[string]interface{}{
			"txLast30d":     10 + s.intn(101),
			"volumeLast30d": fmt.Sprintf("%.2f STX", 50+s.float()*5000),
		},
		"riskScore":    10 + s.intn(31),
		"builderScore": 50 + s.intn(51),
		"lastActive":   time.Now().Add(-time.Duration(s.float() * 24 * float64(time.Hour))).UTC().Format(time.RFC3339),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }

func round6(f float64) float64 { return math.Round(f*1e6) / 1e6 }
