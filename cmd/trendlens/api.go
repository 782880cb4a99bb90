package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/trendlens/internal/cli"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/search"
)

// apiClient talks to a running trendlens server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Search posts req to /search. Service-level failures come back inside the
// response; only transport errors and malformed requests are returned as errors.
func (c *apiClient) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var response models.SearchResponse
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &response) == nil && response.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, response.Error)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// ListCollections fetches /list_collections.
func (c *apiClient) ListCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Collections []string `json:"collections"`
		Error       string   `json:"error"`
	}
	if err := c.getJSON(ctx, "/list_collections", &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("server: %s", out.Error)
	}
	return out.Collections, nil
}

// Status fetches /status.
func (c *apiClient) Status(ctx context.Context) (*search.Stats, error) {
	var stats search.Stats
	if err := c.getJSON(ctx, "/status", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func writeStatus(w io.Writer, stats *search.Stats, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(w, "Collection:  %s\n", stats.Collection)
	fmt.Fprintf(w, "Index type:  %s\n", stats.IndexType)
	fmt.Fprintf(w, "Documents:   %d\n", stats.Documents)
	fmt.Fprintf(w, "Dimensions:  %d\n", stats.Dimensions)
	if stats.Generation != "" {
		fmt.Fprintf(w, "Generation:  %s\n", stats.Generation)
	}
	if stats.Model != "" {
		fmt.Fprintf(w, "Model:       %s\n", stats.Model)
	}
	if !stats.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Ingested at: %s\n", stats.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
