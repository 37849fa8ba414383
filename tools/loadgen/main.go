package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
)

const (
	defaultBaseURL = "http://localhost:8080"
	grantPath      = "/v1/inventory/grant"
)

type Config struct {
	BaseURL        string
	APIKey         string
	Requests       int           // Total grant requests to send
	Concurrency    int           // Number of concurrent workers
	Players        int           // Distinct player IDs to spread requests across
	Items          []string      // Item codes to rotate through
	Amount         int64         // Amount credited per grant
	DuplicateRatio float64       // Fraction of requests replayed with a previously used token
	RequestTimeout time.Duration // Per-request timeout
}

type grantRequest struct {
	PlayerID      int64  `json:"player_id"`
	ItemCode      string `json:"item_code"`
	InventoryType string `json:"inventory_type,omitempty"`
	Amount        int64  `json:"amount"`
	ExtTrxID      string `json:"ext_trx_id"`
}

type result struct {
	latency    time.Duration
	statusCode int
	replayed   bool
	err        error
}

type runStats struct {
	total      int
	succeeded  int
	replayed   int
	failed     int
	transport  int
	latencies  []time.Duration
	wallClock  time.Duration
	byHTTPCode map[int]int
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Printf("Target: %s%s\n", cfg.BaseURL, grantPath)
	fmt.Printf("Requests: %d, concurrency: %d, players: %d, duplicate ratio: %.2f\n\n",
		cfg.Requests, cfg.Concurrency, cfg.Players, cfg.DuplicateRatio)

	stats := run(ctx, cfg)
	printStats(cfg, stats)

	if stats.failed > 0 || stats.transport > 0 {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	var items string
	var timeoutSeconds int
	flag.StringVar(&cfg.BaseURL, "base-url", defaultBaseURL, "Inventory API base URL")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for the grant endpoint (optional)")
	flag.IntVar(&cfg.Requests, "requests", 1000, "Total grant requests to send")
	flag.IntVar(&cfg.Concurrency, "concurrency", 16, "Number of concurrent workers")
	flag.IntVar(&cfg.Players, "players", 50, "Distinct player IDs to spread requests across")
	flag.StringVar(&items, "items", "gold,potion,bfg", "Comma-separated item codes")
	flag.Int64Var(&cfg.Amount, "amount", 1, "Amount credited per grant")
	flag.Float64Var(&cfg.DuplicateRatio, "duplicate-ratio", 0.1, "Fraction of requests replayed with a used idempotency token")
	flag.IntVar(&timeoutSeconds, "request-timeout", 10, "Per-request timeout in seconds")

	configFile := flag.String("config", "", "Path to config file (optional)")

	flag.Parse()

	cfg.RequestTimeout = time.Duration(timeoutSeconds) * time.Second
	cfg.Items = splitItems(items)

	if cfg.Requests <= 0 {
		cfg.Requests = 1000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.Players <= 0 {
		cfg.Players = 1
	}
	if cfg.DuplicateRatio < 0 || cfg.DuplicateRatio >= 1 {
		cfg.DuplicateRatio = 0
	}

	// Load from config file if specified
	if *configFile != "" {
		fileCfg, err := LoadConfig(*configFile)
		if err != nil {
			fmt.Printf("Warning: failed to load config file: %v\n", err)
		} else {
			if cfg.BaseURL == defaultBaseURL && fileCfg.BaseURL != "" {
				cfg.BaseURL = fileCfg.BaseURL
			}
			if cfg.APIKey == "" && fileCfg.APIKey != "" {
				cfg.APIKey = fileCfg.APIKey
			}
		}
	}

	return cfg
}

func splitItems(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		items = []string{"gold"}
	}
	return items
}

// run fires cfg.Requests grants through a bounded worker pool and aggregates
// the results. A slice of the generated tokens is replayed verbatim to verify
// the duplicate path under load.
func run(ctx context.Context, cfg *Config) *runStats {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	pool := pond.NewPool(cfg.Concurrency)

	replayEvery := 0
	if cfg.DuplicateRatio > 0 {
		replayEvery = int(1 / cfg.DuplicateRatio)
	}

	var mu sync.Mutex
	results := make([]result, 0, cfg.Requests)

	var lastToken string
	var lastPayload grantRequest

	start := time.Now()

	for i := 0; i < cfg.Requests; i++ {
		if ctx.Err() != nil {
			break
		}

		payload := grantRequest{
			PlayerID: int64(i%cfg.Players) + 1,
			ItemCode: cfg.Items[i%len(cfg.Items)],
			Amount:   cfg.Amount,
			ExtTrxID: ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		}

		replayed := false
		if replayEvery > 0 && i > 0 && i%replayEvery == 0 && lastToken != "" {
			// Replay the previous request byte-for-byte, token included
			payload = lastPayload
			payload.ExtTrxID = lastToken
			replayed = true
		} else {
			lastToken = payload.ExtTrxID
			lastPayload = payload
		}

		p := payload
		r := replayed
		pool.Submit(func() {
			res := sendGrant(ctx, client, cfg, p)
			res.replayed = r
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		})
	}

	pool.StopAndWait()

	stats := &runStats{
		wallClock:  time.Since(start),
		byHTTPCode: make(map[int]int),
	}
	for _, res := range results {
		stats.total++
		switch {
		case res.err != nil:
			stats.transport++
		case res.statusCode == http.StatusOK && res.replayed:
			stats.replayed++
			stats.latencies = append(stats.latencies, res.latency)
		case res.statusCode == http.StatusOK:
			stats.succeeded++
			stats.latencies = append(stats.latencies, res.latency)
		default:
			stats.failed++
		}
		if res.err == nil {
			stats.byHTTPCode[res.statusCode]++
		}
	}
	return stats
}

func sendGrant(ctx context.Context, client *http.Client, cfg *Config, payload grantRequest) result {
	body, err := json.Marshal(payload)
	if err != nil {
		return result{err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+grantPath, bytes.NewReader(body))
	if err != nil {
		return result{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "ApiKey "+cfg.APIKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return result{latency: latency, err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return result{latency: latency, statusCode: resp.StatusCode}
}

func printStats(cfg *Config, stats *runStats) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Total requests:    %d\n", stats.total)
	fmt.Printf("Succeeded:         %d\n", stats.succeeded)
	fmt.Printf("Replayed tokens:   %d\n", stats.replayed)
	fmt.Printf("HTTP failures:     %d\n", stats.failed)
	fmt.Printf("Transport errors:  %d\n", stats.transport)
	fmt.Printf("Wall clock:        %s\n", formatDuration(stats.wallClock))
	fmt.Printf("Throughput:        %s\n", formatRate(stats.total, stats.wallClock))

	if len(stats.byHTTPCode) > 0 {
		codes := make([]int, 0, len(stats.byHTTPCode))
		for code := range stats.byHTTPCode {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		fmt.Println("\nHTTP status codes:")
		for _, code := range codes {
			fmt.Printf("  %d: %d\n", code, stats.byHTTPCode[code])
		}
	}

	if len(stats.latencies) > 0 {
		fmt.Println("\nLatency:")
		fmt.Printf("  p50: %s\n", formatDuration(percentile(stats.latencies, 50)))
		fmt.Printf("  p90: %s\n", formatDuration(percentile(stats.latencies, 90)))
		fmt.Printf("  p99: %s\n", formatDuration(percentile(stats.latencies, 99)))
		fmt.Printf("  max: %s\n", formatDuration(percentile(stats.latencies, 100)))
	}
}
