// Command benchmark measures end-to-end latency of a running Pokédex API.
//
// Every request launches a fresh browser, so latency is dominated by launch
// and navigation; the report shows both success rate and average latency per
// target.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:3000", "Pokédex API base URL")
	token       = flag.String("token", "", "API token for authenticated requests")
	runs        = flag.Int("runs", 3, "Number of runs per target for averaging")
	concurrency = flag.Int("concurrency", 1, "Requests in flight at once")
	names       = flag.String("names", "bulbasaur,pikachu,eevee,mewtwo", "Comma-separated Pokémon for the detail benchmark")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
)

type target struct {
	Label string
	Path  string
}

// envelope mirrors the API result envelope.
type envelope struct {
	OK   bool `json:"ok"`
	Data *struct {
		Count   *int            `json:"count"`
		Records json.RawMessage `json:"records"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	LatencyMs  int64  `json:"latency_ms"`
	HTTPStatus int    `json:"http_status"`
	Records    int    `json:"records"`
	Success    bool   `json:"success"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type targetResult struct {
	Label        string      `json:"label"`
	Path         string      `json:"path"`
	Runs         []runResult `json:"runs"`
	SuccessRate  float64     `json:"success_rate"`
	AvgLatencyMs float64     `json:"avg_latency_ms,omitempty"`
	P50LatencyMs int64       `json:"p50_latency_ms,omitempty"`
	MaxLatencyMs int64       `json:"max_latency_ms,omitempty"`
}

type benchmarkReport struct {
	Timestamp   string         `json:"timestamp"`
	APIURL      string         `json:"api_url"`
	RunsPer     int            `json:"runs_per_target"`
	Concurrency int            `json:"concurrency"`
	Results     []targetResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Pokédex Benchmark Suite ===")
	fmt.Printf("API URL:     %s\n", *apiURL)
	fmt.Printf("Runs:        %d\n", *runs)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Output:      %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the server is running (go run ./cmd/pokedex)\n")
		os.Exit(1)
	}

	targets := []target{{Label: "list", Path: "/v1/pokemon"}}
	for _, n := range strings.Split(*names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			targets = append(targets, target{Label: n, Path: "/v1/pokemon/" + url.PathEscape(n)})
		}
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPer:     *runs,
		Concurrency: *concurrency,
	}

	client := &http.Client{Timeout: 120 * time.Second}
	for _, t := range targets {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.Path)
		report.Results = append(report.Results, benchmarkTarget(client, t))
	}
	fmt.Println()

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkTarget(client *http.Client, t target) targetResult {
	tr := targetResult{Label: t.Label, Path: t.Path, Runs: make([]runResult, *runs)}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(max(1, *concurrency))
	for i := 0; i < *runs; i++ {
		g.Go(func() error {
			rr := runOnce(client, t.Path, i+1)
			mu.Lock()
			tr.Runs[i] = rr
			mu.Unlock()
			if rr.Success {
				fmt.Printf("  Run %d/%d  OK  %dms  %d records\n", i+1, *runs, rr.LatencyMs, rr.Records)
			} else {
				fmt.Printf("  Run %d/%d  FAILED: %s\n", i+1, *runs, rr.Error)
			}
			return nil
		})
	}
	_ = g.Wait()

	summarize(&tr)
	return tr
}

func runOnce(client *http.Client, path string, run int) runResult {
	rr := runResult{Run: run}

	req, err := http.NewRequest(http.MethodGet, *apiURL+path, nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var env envelope
	err = json.NewDecoder(resp.Body).Decode(&env)
	rr.LatencyMs = time.Since(start).Milliseconds()
	rr.HTTPStatus = resp.StatusCode
	if err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = env.OK
	if env.Error != nil {
		rr.ErrorCode = env.Error.Code
		rr.Error = env.Error.Message
	}
	if env.Data != nil {
		if env.Data.Count != nil {
			rr.Records = *env.Data.Count
		} else {
			rr.Records = 1
		}
	}
	return rr
}

func summarize(tr *targetResult) {
	var latencies []int64
	for _, r := range tr.Runs {
		if r.Success {
			latencies = append(latencies, r.LatencyMs)
		}
	}
	if len(tr.Runs) > 0 {
		tr.SuccessRate = float64(len(latencies)) / float64(len(tr.Runs))
	}
	if len(latencies) == 0 {
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var sum int64
	for _, l := range latencies {
		sum += l
	}
	tr.AvgLatencyMs = float64(sum) / float64(len(latencies))
	tr.P50LatencyMs = latencies[len(latencies)/2]
	tr.MaxLatencyMs = latencies[len(latencies)-1]
}

func printTable(results []targetResult) {
	fmt.Println(strings.Repeat("─", 72))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Target\tSuccess\tAvg\tP50\tMax\tTop Error\n")
	fmt.Fprintf(w, "──────\t───────\t───\t───\t───\t─────────\n")

	for _, r := range results {
		if r.AvgLatencyMs == 0 {
			fmt.Fprintf(w, "%s\t0%%\t-\t-\t-\t%s\n", r.Label, dominantError(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%.0f%%\t%dms\t%dms\t%dms\t%s\n",
			r.Label,
			r.SuccessRate*100,
			int64(r.AvgLatencyMs),
			r.P50LatencyMs,
			r.MaxLatencyMs,
			dominantError(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 72))
}

func dominantError(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if !r.Success && r.ErrorCode != "" {
			counts[r.ErrorCode]++
		}
	}
	best, bestCount := "-", 0
	for code, count := range counts {
		if count > bestCount {
			best = code
			bestCount = count
		}
	}
	return best
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
