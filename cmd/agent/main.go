// Command agent demonstrates the caller side of the marketplace: discover
// the catalog, pick the resource matching a task, and call it through the
// paying round tripper.
//
// Usage:
//
//	agent [-server URL] [-proof PROOF] [task...]
//
// Without -proof the agent still runs, reports the payment terms from the
// 402 challenge, and stops there.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/conduit-market/conduit"
	"github.com/conduit-market/conduit/client"
)

func main() {
	server := flag.String("server", "http://localhost:3402", "marketplace base URL")
	proof := flag.String("proof", os.Getenv("PAYMENT_PROOF"), "payment proof to present on 402 challenges")
	flag.Parse()

	task := strings.Join(flag.Args(), " ")
	if task == "" {
		task = "What's the price of Bitcoin?"
	}

	if err := run(*server, *proof, task); err != nil {
		fmt.Fprintln(os.Stderr, "agent:", err)
		os.Exit(1)
	}
}

func run(server, proof, task string) error {
	fmt.Printf("Task: %q\n\n", task)

	resources, err := discover(server)
	if err != nil {
		return err
	}
	fmt.Printf("Discovered %d APIs\n", len(resources))

	res, ok := client.Select(resources, client.DefaultKeywords, task)
	if !ok {
		return fmt.Errorf("marketplace catalog is empty")
	}
	fmt.Printf("Selected: %s (%s %s, %s %s per call)\n\n",
		res.Name, res.Method, res.Path, res.Price.Amount, res.Price.Currency)

	var source client.ProofSource
	if proof != "" {
		source = client.ProofFunc(func(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error) {
			fmt.Printf("Paying challenge: %s micro-%s to %s on %s\n",
				challenge.Amount, challenge.Currency, challenge.PayTo, challenge.Network)
			return conduit.PaymentProof(proof), nil
		})
	}
	httpClient := client.WrapClient(nil, source)

	req, err := buildRequest(server, res)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if receipt := resp.Header.Get(client.SettlementHeader); receipt != "" {
		fmt.Printf("Settlement receipt: %s\n", receipt)
	}
	fmt.Printf("Response:\n%s\n", indentJSON(body))
	return nil
}

// discover fetches the catalog from /api/v1/discover.
func discover(server string) ([]conduit.ResourceDescriptor, error) {
	resp, err := http.Get(server + "/api/v1/discover")
	if err != nil {
		return nil, fmt.Errorf("discovering marketplace: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover returned status %d", resp.StatusCode)
	}

	var doc struct {
		APIs []conduit.ResourceDescriptor `json:"apis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding discover response: %w", err)
	}
	return doc.APIs, nil
}

// buildRequest constructs a sample call for the selected resource, filling
// in plausible demo parameters.
func buildRequest(server string, res conduit.ResourceDescriptor) (*http.Request, error) {
	params := demoParams(res.ID)

	if res.Method == http.MethodGet {
		query := url.Values{}
		for key, value := range params {
			query.Set(key, fmt.Sprint(value))
		}
		target := server + res.Path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}
		return http.NewRequest(http.MethodGet, target, nil)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(res.Method, server+res.Path, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func demoParams(resourceID string) map[string]interface{} {
	switch resourceID {
	case "weather":
		return map[string]interface{}{"location": "San Francisco"}
	case "sentiment":
		return map[string]interface{}{"text": "This marketplace is delightful to use."}
	case "translate":
		return map[string]interface{}{"text": "Hello, world", "from": "en", "to": "es"}
	case "price-oracle":
		return map[string]interface{}{"symbol": "BTC"}
	case "image-gen":
		return map[string]interface{}{"prompt": "a lighthouse at dusk"}
	case "code-review":
		return map[string]interface{}{"code": "function add(a, b) { return a + b }", "language": "javascript"}
	case "news-feed":
		return map[string]interface{}{"topic": "technology", "limit": "5"}
	case "chain-analytics":
		return map[string]interface{}{"address": "SP1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRCBGD7R"}
	default:
		return map[string]interface{}{}
	}
}

func indentJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
