package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"attendance.service/internal/api/middleware"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/v1/attendance", "attendance API base URL")
	secret := flag.String("secret", "local-dev-secret", "JWT_SECRET of the API")
	users := flag.Int("users", 5000, "number of simulated users")
	concurrency := flag.Int("concurrency", 50, "concurrent users")
	shift := flag.String("shift", "Morning", "shift to check in to")
	flag.Parse()

	// One admin token records attendance on behalf of every simulated user.
	token, err := middleware.NewToken([]byte(*secret), "load-test", "Load Test", middleware.RoleAdmin, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Starting load test: %d users (check-in + check-out) against %s with concurrency %d\n", *users, *baseURL, *concurrency)

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, *concurrency)
		success  int64
		failures int64
		mu       sync.Mutex
		byStatus = map[int]int{}
	)
	client := &http.Client{Timeout: 10 * time.Second}

	post := func(path string, body map[string]any) {
		payload, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, *baseURL+path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := client.Do(req)
		if err != nil {
			atomic.AddInt64(&failures, 1)
			return
		}
		resp.Body.Close()
		mu.Lock()
		byStatus[resp.StatusCode]++
		mu.Unlock()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			atomic.AddInt64(&success, 1)
		} else {
			atomic.AddInt64(&failures, 1)
		}
	}

	start := time.Now()
	for i := 0; i < *users; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			post("/check-in", map[string]any{"userId": userID, "userName": "User " + userID, "shift": *shift})
			post("/check-out", map[string]any{"userId": userID, "shift": *shift})
		}(fmt.Sprintf("load-test-user-%d", i))
	}
	wg.Wait()
	duration := time.Since(start)
	total := *users * 2

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", total)
	fmt.Printf("Successful:     %d\n", success)
	fmt.Printf("Failed:         %d\n", failures)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(total)/duration.Seconds())
	for code, n := range byStatus {
		fmt.Printf("HTTP %d:       %d\n", code, n)
	}
}
