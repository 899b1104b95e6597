package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

const (
	baseURL      = "http://127.0.0.1:8090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numURLs      = 500
	numGroups    = 20
)

var intervals = []string{"later-today", "this-evening", "tomorrow", "next-week", "in-a-month", "someday"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== snoozed Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("URLs: %d | Groups: %d\n\n", numURLs, numGroups)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Snoozing (POST /message) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doSnooze(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (50% snooze, 50% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.40:
			return doSnooze(rng)
		case r < 0.50:
			return doSnoozeInterval(rng)
		case r < 0.75:
			return doGet("/snoozed")
		case r < 0.90:
			return doGet("/badge")
		default:
			return doGet("/intervals")
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load (10% snooze, 90% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doSnooze(rng)
		case r < 0.50:
			return doGet("/snoozed")
		case r < 0.80:
			return doGet("/badge")
		case r < 0.90:
			return doGet("/settings")
		default:
			return doGet("/notifications")
		}
	})

	fmt.Println("\n--- Cleanup ---")
	r := doMessage(map[string]any{"action": "clearAllSnoozedTabs"}, "clear")
	fmt.Printf("  clearAllSnoozedTabs -> %d\n", r.status)
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-26s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 92))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-26s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 92))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func randomTab(rng *rand.Rand) map[string]any {
	n := rng.Intn(numURLs) + 1
	return map[string]any{
		"url":   fmt.Sprintf("https://example.com/page/%d", n),
		"title": fmt.Sprintf("Page %d", n),
	}
}

func doSnooze(rng *rand.Rand) result {
	req := map[string]any{
		"action": "snooze",
		"tab":    randomTab(rng),
		// Far enough ahead that the wake scan never picks them up mid-test.
		"popTime": time.Now().Add(time.Duration(rng.Intn(72)+24) * time.Hour).UnixMilli(),
	}
	if rng.Float64() < 0.2 {
		req["groupId"] = fmt.Sprintf("group-%d", rng.Intn(numGroups))
	}
	return doMessage(req, "snooze")
}

func doSnoozeInterval(rng *rand.Rand) result {
	return doMessage(map[string]any{
		"action":   "snoozeInterval",
		"tab":      randomTab(rng),
		"interval": intervals[rng.Intn(len(intervals))],
	}, "snoozeInterval")
}

func doMessage(req map[string]any, action string) result {
	endpoint := "POST /message " + action
	data, _ := json.Marshal(req)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/message", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func doGet(path string) result {
	endpoint := "GET " + path
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
