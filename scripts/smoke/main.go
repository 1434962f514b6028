// Command smoke probes a running academy-api instance and exits non-zero
// when any critical endpoint misbehaves. Meant for post-deploy checks.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type check struct {
	Name       string
	Method     string
	Path       string
	WantStatus int
	Critical   bool
}

var checks = []check{
	{Name: "liveness", Method: http.MethodGet, Path: "/health", WantStatus: http.StatusOK, Critical: true},
	{Name: "readiness", Method: http.MethodGet, Path: "/ready", WantStatus: http.StatusOK, Critical: true},
	{Name: "metrics", Method: http.MethodGet, Path: "/metrics", WantStatus: http.StatusOK, Critical: false},
	{Name: "auth guard", Method: http.MethodGet, Path: "/api/v1/dashboard", WantStatus: http.StatusUnauthorized, Critical: true},
	{Name: "cron guard", Method: http.MethodPost, Path: "/api/v1/cron/generate-classes", WantStatus: http.StatusForbidden, Critical: true},
}

func main() {
	var (
		base    string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	failed := false

	for _, c := range checks {
		req, err := http.NewRequest(c.Method, strings.TrimRight(base, "/")+c.Path, nil)
		if err != nil {
			fmt.Printf("FAIL %-12s %v\n", c.Name, err)
			failed = failed || c.Critical
			continue
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("FAIL %-12s %v\n", c.Name, err)
			failed = failed || c.Critical
			continue
		}
		resp.Body.Close()

		if resp.StatusCode != c.WantStatus {
			fmt.Printf("FAIL %-12s %s %s: got %d, want %d\n",
				c.Name, c.Method, c.Path, resp.StatusCode, c.WantStatus)
			failed = failed || c.Critical
			continue
		}
		fmt.Printf("OK   %-12s %s %s (%d, %s)\n",
			c.Name, c.Method, c.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	if failed {
		os.Exit(1)
	}
}
