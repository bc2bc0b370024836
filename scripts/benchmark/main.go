package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
)

// listingsResponse mirrors the fields of the listings API the benchmark reads.
type listingsResponse struct {
	Success    bool   `json:"success"`
	Count      int    `json:"count"`
	DurationMs int64  `json:"durationMs"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Properties []struct {
		Latitude *float64 `json:"latitude"`
	} `json:"properties"`
}

type runResult struct {
	Run      int    `json:"run"`
	WallMs   int64  `json:"wall_ms"`
	ServerMs int64  `json:"server_ms"`
	Listings int    `json:"listings"`
	Geocoded int    `json:"geocoded"`
	Success  bool   `json:"success"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

type targetAverages struct {
	WallMs   float64 `json:"wall_ms"`
	ServerMs float64 `json:"server_ms"`
	Listings float64 `json:"listings"`
	Geocoded float64 `json:"geocoded"`
}

type targetResult struct {
	URL      string          `json:"url"`
	Runs     []runResult     `json:"runs"`
	Averages *targetAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp     string         `json:"timestamp"`
	APIURL        string         `json:"api_url"`
	RunsPerTarget int            `json:"runs_per_target"`
	Geocode       bool           `json:"geocode"`
	Results       []targetResult `json:"results"`
}

func main() {
	app := &cli.App{
		Name:  "listmap-bench",
		Usage: "measure listings scrape and geocode latency against a running listmap server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "listmap API base URL", EnvVars: []string{"LISTMAP_API_URL"}},
			&cli.StringFlag{Name: "api-key", Usage: "API key for authenticated requests", EnvVars: []string{"LISTMAP_API_KEY"}},
			&cli.StringSliceFlag{Name: "target", Usage: "listings page to scrape (repeatable); the server default when omitted"},
			&cli.IntFlag{Name: "runs", Value: 3, Usage: "runs per target for averaging"},
			&cli.BoolFlag{Name: "geocode", Value: true, Usage: "request geocoded listings"},
			&cli.StringFlag{Name: "output", Value: "benchmark-results.json", Usage: "JSON output file path"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	apiURL := strings.TrimRight(c.String("api-url"), "/")
	runs := c.Int("runs")
	targets := c.StringSlice("target")
	if len(targets) == 0 {
		targets = []string{""}
	}

	fmt.Println("=== listmap Benchmark ===")
	fmt.Printf("API URL:     %s\n", apiURL)
	fmt.Printf("Runs/target: %d\n", runs)
	fmt.Printf("Geocode:     %v\n", c.Bool("geocode"))
	fmt.Println()

	client := &http.Client{Timeout: 180 * time.Second}
	if err := checkAPI(client, apiURL); err != nil {
		return fmt.Errorf("cannot reach API at %s: %w", apiURL, err)
	}

	report := benchmarkReport{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		APIURL:        apiURL,
		RunsPerTarget: runs,
		Geocode:       c.Bool("geocode"),
	}

	for _, target := range targets {
		label := target
		if label == "" {
			label = "(server default)"
		}
		fmt.Printf("Benchmarking %s ...\n", label)
		tr := targetResult{URL: label}

		for i := 1; i <= runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, runs)
			rr := benchmarkTarget(client, apiURL, c.String("api-key"), target, c.Bool("geocode"), i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d listings, %d geocoded\n", rr.WallMs, rr.Listings, rr.Geocoded)
			} else {
				fmt.Printf("FAILED: [%s] %s\n", rr.Code, rr.Error)
			}
			tr.Runs = append(tr.Runs, rr)
		}

		tr.Averages = computeAverages(tr.Runs)
		report.Results = append(report.Results, tr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(c.String("output"), report); err != nil {
		return fmt.Errorf("writing JSON output: %w", err)
	}
	fmt.Printf("\nDetailed results written to %s\n", c.String("output"))
	return nil
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	return nil
}

func benchmarkTarget(client *http.Client, apiURL, apiKey, target string, geocode bool, run int) runResult {
	rr := runResult{Run: run}

	q := url.Values{}
	q.Set("geocode", fmt.Sprint(geocode))
	if target != "" {
		q.Set("url", target)
	}

	req, err := http.NewRequest(http.MethodGet, apiURL+"/api/v1/listings?"+q.Encode(), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var lr listingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	rr.WallMs = time.Since(start).Milliseconds()

	rr.Success = lr.Success
	rr.ServerMs = lr.DurationMs
	rr.Listings = lr.Count
	rr.Code = lr.Code
	rr.Error = lr.Message
	for _, p := range lr.Properties {
		if p.Latitude != nil {
			rr.Geocoded++
		}
	}
	return rr
}

func computeAverages(runs []runResult) *targetAverages {
	var successCount int
	var avg targetAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.WallMs += float64(r.WallMs)
		avg.ServerMs += float64(r.ServerMs)
		avg.Listings += float64(r.Listings)
		avg.Geocoded += float64(r.Geocoded)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.WallMs /= n
	avg.ServerMs /= n
	avg.Listings /= n
	avg.Geocoded /= n
	return &avg
}

func printTable(results []targetResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Target\tAvg Wall\tAvg Server\tListings\tGeocoded\n")
	fmt.Fprintf(w, "──────\t────────\t──────────\t────────\t────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%.0f\t%.0f\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.WallMs),
			int64(r.Averages.ServerMs),
			r.Averages.Listings,
			r.Averages.Geocoded,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
