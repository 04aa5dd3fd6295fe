package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/relaydesk/relay/transport"
)

// SourceCitation is one web source backing an augmented answer. It passes
// through the pipeline unchanged to the final reply.
type SourceCitation struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"relevanceScore,omitempty"`
}

// Result is the search collaborator's answer: an optional synthesized
// answer plus ranked sources.
type Result struct {
	Answer  string
	Sources []SourceCitation
	Content []string // per-source content snippets, same order as Sources
}

// Client is the web-search collaborator boundary.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) (*Result, error)
}

// TavilyClient talks to the Tavily search API.
type TavilyClient struct {
	apiKey     string
	httpClient *http.Client
	url        string
	policy     transport.Policy
}

func NewTavilyClient(policy transport.Policy) (*TavilyClient, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY environment variable is not set")
	}

	return &TavilyClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		url:        "https://api.tavily.com/search",
		policy:     policy,
	}, nil
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) (*Result, error) {
	request := tavilyRequest{
		APIKey:        c.apiKey,
		Query:         query,
		MaxResults:    maxResults,
		IncludeAnswer: true,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	var response tavilyResponse
	err = c.policy.Do(ctx, "search.query", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error making request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		return json.Unmarshal(body, &response)
	})
	if err != nil {
		return nil, err
	}

	out := &Result{Answer: response.Answer}
	for _, r := range response.Results {
		out.Sources = append(out.Sources, SourceCitation{Title: r.Title, URL: r.URL, Score: r.Score})
		out.Content = append(out.Content, r.Content)
	}
	return out, nil
}
