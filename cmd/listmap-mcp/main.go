package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// listing mirrors one element of the listings API response.
type listing struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Town         string   `json:"town"`
	Price        string   `json:"price"`
	Link         string   `json:"link"`
	PropertyType string   `json:"propertyType"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// listingsResponse mirrors the listings API envelope.
type listingsResponse struct {
	Success    bool      `json:"success"`
	Properties []listing `json:"properties"`
	Count      int       `json:"count"`
	Source     string    `json:"source"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Code       string    `json:"code"`
}

// geocodeResponse mirrors the geocode API envelope.
type geocodeResponse struct {
	Success    bool `json:"success"`
	Properties []struct {
		Town      string   `json:"town"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"properties"`
	Error string `json:"error"`
}

// apiClient talks to a running listmap server.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func main() {
	apiURL := os.Getenv("LISTMAP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	client := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("LISTMAP_API_KEY"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}

	s := server.NewMCPServer(
		"listmap",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_listings",
		mcp.WithDescription("Scrape a real-estate results page and return its listings (title, town, price, type, link), optionally with town coordinates."),
		mcp.WithString("url",
			mcp.Description("Listings page URL. Omit to use the server's default page."),
		),
		mcp.WithBoolean("geocode",
			mcp.Description("Resolve each listing's town to coordinates (default: true)"),
		),
	)
	s.AddTool(scrapeTool, handleScrapeListings(client))

	geocodeTool := mcp.NewTool("geocode_towns",
		mcp.WithDescription("Resolve town names to latitude/longitude using the server's cached geocoder."),
		mcp.WithArray("towns",
			mcp.Required(),
			mcp.Description("Town names to resolve"),
		),
	)
	s.AddTool(geocodeTool, handleGeocodeTowns(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// post sends a JSON POST to the listmap API and returns the response body.
func (c *apiClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrapeListings(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := map[string]any{
			"geocode": request.GetBool("geocode", true),
		}
		if u := request.GetString("url", ""); u != "" {
			payload["url"] = u
		}

		body, err := c.post(ctx, "/api/v1/listings", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp listingsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s: %s", resp.Code, resp.Error, resp.Message)), nil
		}

		return mcp.NewToolResultText(formatListings(resp)), nil
	}
}

func formatListings(resp listingsResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\nListings: %d\n", resp.Source, resp.Count)
	for _, l := range resp.Properties {
		fmt.Fprintf(&b, "\n%d. %s | %s | %s", l.ID, l.Title, l.Price, l.PropertyType)
		if l.Latitude != nil && l.Longitude != nil {
			fmt.Fprintf(&b, " | %.5f, %.5f", *l.Latitude, *l.Longitude)
		}
		fmt.Fprintf(&b, "\n   %s", l.Link)
	}
	return b.String()
}

func handleGeocodeTowns(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		towns, err := request.RequireStringSlice("towns")
		if err != nil || len(towns) == 0 {
			return mcp.NewToolResultError("towns is required and must be a non-empty array of strings"), nil
		}

		records := make([]map[string]string, len(towns))
		for i, t := range towns {
			records[i] = map[string]string{"town": t}
		}

		body, err := c.post(ctx, "/api/v1/geocode", map[string]any{"properties": records})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp geocodeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError("geocode failed: " + resp.Error), nil
		}

		var b strings.Builder
		for _, p := range resp.Properties {
			if p.Latitude == nil || p.Longitude == nil {
				fmt.Fprintf(&b, "%s: not found\n", p.Town)
				continue
			}
			fmt.Fprintf(&b, "%s: %.5f, %.5f\n", p.Town, *p.Latitude, *p.Longitude)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}
