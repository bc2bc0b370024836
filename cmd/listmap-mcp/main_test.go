package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func newTestClient(h http.HandlerFunc) (*apiClient, func()) {
	srv := httptest.NewServer(h)
	return &apiClient{baseURL: srv.URL, apiKey: "k", http: &http.Client{Timeout: 5 * time.Second}}, srv.Close
}

func TestScrapeListings(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/listings" || r.Header.Get("X-API-Key") != "k" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("X-API-Key"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["geocode"] != true || body["url"] != "https://h.test/" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"success":true,"count":1,"source":"https://h.test/","properties":[
			{"id":1,"title":"Kranj","price":"1 €","propertyType":"Hiša","link":"https://h.test/1","latitude":46.2389,"longitude":14.3556}]}`))
	})
	defer done()

	res, err := handleScrapeListings(c)(context.Background(), callTool("scrape_listings", map[string]any{"url": "https://h.test/"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	for _, want := range []string{"Listings: 1", "Kranj", "46.23890, 14.35560", "https://h.test/1"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestScrapeListings_Failure(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"properties":[],"error":"failed to scrape listings","message":"timed out","code":"CONTENT_TIMEOUT"}`))
	})
	defer done()

	res, _ := handleScrapeListings(c)(context.Background(), callTool("scrape_listings", nil))
	if !res.IsError || !strings.Contains(resultText(t, res), "CONTENT_TIMEOUT") {
		t.Errorf("want a tool error carrying the code, got %+v", res)
	}
}

func TestGeocodeTowns(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"properties":[
			{"town":"Kranj","latitude":46.2389,"longitude":14.3556},
			{"town":"Atlantida","latitude":null,"longitude":null}]}`))
	})
	defer done()

	res, _ := handleGeocodeTowns(c)(context.Background(), callTool("geocode_towns", map[string]any{
		"towns": []any{"Kranj", "Atlantida"},
	}))
	text := resultText(t, res)
	if !strings.Contains(text, "Kranj: 46.23890, 14.35560") || !strings.Contains(text, "Atlantida: not found") {
		t.Errorf("output = %q", text)
	}
}

func TestGeocodeTowns_MissingArgument(t *testing.T) {
	res, _ := handleGeocodeTowns(&apiClient{})(context.Background(), callTool("geocode_towns", nil))
	if !res.IsError {
		t.Error("missing towns should be a tool error")
	}
}
