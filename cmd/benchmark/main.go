package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var unaryResp = []byte(`{"id":"bench-123","choices":[{"message":{"content":"Hello"}}]}`)

const benchConfig = `
schema_version: "1.0.0"
server:
  port: "8081"
  env: production
  api_keys:
    - bench-key-12345
store:
  dsn: "file:bench.db?cache=shared&mode=rwc&_journal_mode=WAL"
  seed_file: bench_seed.yaml
rate_limit:
  requests_per_second: 100000
  burst: 200000
upstream:
  endpoints:
    primary:
      base_url: http://localhost:9091
    backup:
      base_url: http://localhost:9091
`

const benchSeed = `
tags:
  - id: bench
    category: general
strategies:
  - id: default
    cost_weight: 0.5
    performance_weight: 0.3
    capability_weight: 0.2
models:
  - vendor: primary
    model: fast-model
    protocol: openai
    input_cost_per_mtok: 1.0
    output_cost_per_mtok: 2.0
    capability_score: 0.7
  - vendor: backup
    model: steady-model
    protocol: openai
    input_cost_per_mtok: 3.0
    output_cost_per_mtok: 6.0
    capability_score: 0.8
`

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	chaos := flag.Bool("chaos", false, "Make the primary mock vendor flaky to exercise fallback")
	flag.Parse()

	go startMockVendor(*chaos)

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	if err := os.WriteFile("config.yaml", []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove("config.yaml")
	if err := os.WriteFile("bench_seed.yaml", []byte(benchSeed), 0644); err != nil {
		log.Fatalf("Failed to write seed: %v", err)
	}
	defer os.Remove("bench_seed.yaml")

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	mode := "steady upstream"
	if *chaos {
		mode = "flaky primary (fallback exercised)"
	}
	fmt.Printf("Running benchmark: %s duration, %d req/s, %s\n", *duration, *rate, mode)

	body := `{"tags": ["bench"], "payload": {"messages": [{"role": "user", "content": "Hello"}]}}`

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = fmt.Sprintf("http://localhost:%d/v1/route", appPort)
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{"Bearer bench-key-12345"},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "routecore") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")
		seen := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !seen[msg] && count < 5 {
				fmt.Println(msg)
				seen[msg] = true
				count++
			}
		}
	}

	os.Remove("bench.db")
}

// startMockVendor serves the OpenAI-style completion path both seeded
// vendors point at. In chaos mode roughly a third of responses are 429
// or 503 so the fallback chain and breakers do real work.
func startMockVendor(chaos bool) {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if chaos {
			switch rand.Intn(6) {
			case 0:
				http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
				return
			case 1:
				http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
				return
			}
		}

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write(unaryResp)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	if err := http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux); err != nil {
		log.Fatalf("Mock vendor failed: %v", err)
	}
}

func waitForApp(url string) {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	log.Fatal("App never became healthy")
}
