package main

import (
	"flag"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// LoadTestConfig holds configuration for load testing
type LoadTestConfig struct {
	URL             string
	ConcurrentUsers int
	RequestsPerUser int
	Timeout         time.Duration
	RampUpDuration  time.Duration
	ThinkTime       time.Duration
}

// LoadTestResult holds the result of a single request
type LoadTestResult struct {
	StatusCode int
	Duration   time.Duration
	Success    bool
	Error      error
}

// LoadTestSummary holds the summary of load test results
type LoadTestSummary struct {
	TotalRequests       int
	SuccessfulRequests  int
	FailedRequests      int
	TotalDuration       time.Duration
	AverageResponseTime time.Duration
	MinResponseTime     time.Duration
	MaxResponseTime     time.Duration
	RequestsPerSecond   float64
	ErrorRate           float64
	ResponseTime95th    time.Duration
	ResponseTime99th    time.Duration
}

func main() {
	var config LoadTestConfig

	flag.StringVar(&config.URL, "url", "http://localhost:8081/api/v1/display", "Target URL to test")
	flag.IntVar(&config.ConcurrentUsers, "users", 10, "Number of concurrent users")
	flag.IntVar(&config.RequestsPerUser, "requests", 100, "Number of requests per user")
	flag.DurationVar(&config.Timeout, "timeout", 30*time.Second, "Request timeout")
	flag.DurationVar(&config.RampUpDuration, "rampup", 5*time.Second, "Ramp-up duration")
	flag.DurationVar(&config.ThinkTime, "think", 100*time.Millisecond, "Think time between requests")
	flag.Parse()

	fmt.Printf("Starting load test...\n")
	fmt.Printf("URL: %s\n", config.URL)
	fmt.Printf("Concurrent Users: %d\n", config.ConcurrentUsers)
	fmt.Printf("Requests per User: %d\n", config.RequestsPerUser)
	fmt.Printf("Timeout: %v\n", config.Timeout)
	fmt.Printf("Ramp-up Duration: %v\n", config.RampUpDuration)
	fmt.Printf("Think Time: %v\n", config.ThinkTime)
	fmt.Println()

	summary := runLoadTest(config)
	printSummary(summary)
}

func runLoadTest(config LoadTestConfig) LoadTestSummary {
	results := make(chan LoadTestResult, config.ConcurrentUsers*config.RequestsPerUser)
	client := &http.Client{Timeout: config.Timeout}

	rampUpStep := time.Duration(0)
	if config.ConcurrentUsers > 1 {
		rampUpStep = config.RampUpDuration / time.Duration(config.ConcurrentUsers)
	}

	started := time.Now()
	var wg sync.WaitGroup
	for user := 0; user < config.ConcurrentUsers; user++ {
		wg.Add(1)
		go func(delay time.Duration) {
			defer wg.Done()
			time.Sleep(delay)
			for i := 0; i < config.RequestsPerUser; i++ {
				results <- issueRequest(client, config.URL)
				time.Sleep(config.ThinkTime)
			}
		}(time.Duration(user) * rampUpStep)
	}
	wg.Wait()
	close(results)

	return summarize(results, time.Since(started))
}

func issueRequest(client *http.Client, url string) LoadTestResult {
	begin := time.Now()
	response, err := client.Get(url)
	elapsed := time.Since(begin)
	if err != nil {
		return LoadTestResult{Duration: elapsed, Error: err}
	}
	defer response.Body.Close()
	return LoadTestResult{
		StatusCode: response.StatusCode,
		Duration:   elapsed,
		Success:    response.StatusCode >= 200 && response.StatusCode < 300,
	}
}

func summarize(results chan LoadTestResult, total time.Duration) LoadTestSummary {
	summary := LoadTestSummary{TotalDuration: total}
	durations := []time.Duration{}
	var sum time.Duration

	for result := range results {
		summary.TotalRequests++
		if result.Success {
			summary.SuccessfulRequests++
		} else {
			summary.FailedRequests++
		}
		durations = append(durations, result.Duration)
		sum += result.Duration
	}

	if summary.TotalRequests == 0 {
		return summary
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	summary.MinResponseTime = durations[0]
	summary.MaxResponseTime = durations[len(durations)-1]
	summary.AverageResponseTime = sum / time.Duration(summary.TotalRequests)
	summary.ResponseTime95th = durations[percentileIndex(len(durations), 95)]
	summary.ResponseTime99th = durations[percentileIndex(len(durations), 99)]
	summary.RequestsPerSecond = float64(summary.TotalRequests) / total.Seconds()
	summary.ErrorRate = float64(summary.FailedRequests) / float64(summary.TotalRequests) * 100

	return summary
}

func percentileIndex(length, percentile int) int {
	index := length*percentile/100 - 1
	if index < 0 {
		index = 0
	}
	if index >= length {
		index = length - 1
	}
	return index
}

func printSummary(summary LoadTestSummary) {
	fmt.Println("Load test complete")
	fmt.Printf("Total Requests: %d\n", summary.TotalRequests)
	fmt.Printf("Successful: %d\n", summary.SuccessfulRequests)
	fmt.Printf("Failed: %d\n", summary.FailedRequests)
	fmt.Printf("Total Duration: %v\n", summary.TotalDuration)
	fmt.Printf("Requests/sec: %.2f\n", summary.RequestsPerSecond)
	fmt.Printf("Error Rate: %.2f%%\n", summary.ErrorRate)
	fmt.Printf("Avg Response Time: %v\n", summary.AverageResponseTime)
	fmt.Printf("Min Response Time: %v\n", summary.MinResponseTime)
	fmt.Printf("Max Response Time: %v\n", summary.MaxResponseTime)
	fmt.Printf("95th Percentile: %v\n", summary.ResponseTime95th)
	fmt.Printf("99th Percentile: %v\n", summary.ResponseTime99th)
}
