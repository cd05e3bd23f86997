// Package main is the entry point for weather-adminctl, a CLI that
// talks only to the aggregator's admin HTTP surface. It has no
// station-data surface: it cannot PUT or GET weather records, since
// that wire protocol is deliberately not net/http-based.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var adminURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "weather-adminctl",
		Short: "Admin CLI for the weather aggregator",
		Long:  "A command-line tool for checking liveness, readiness, and metrics on a running weather aggregator's admin surface.",
	}

	rootCmd.PersistentFlags().StringVarP(&adminURL, "admin-url", "a", "http://localhost:9567", "Aggregator admin surface URL")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Report liveness and readiness",
			RunE:  runStatus,
		},
		&cobra.Command{
			Use:   "metrics",
			Short: "Dump raw Prometheus metrics",
			RunE:  runMetrics,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("weather-adminctl %s (commit: %s)\n", version, commit)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := httpClient()

	liveCode, err := getStatus(client, adminURL+"/healthz")
	if err != nil {
		return fmt.Errorf("healthz check failed: %w", err)
	}
	readyCode, err := getStatus(client, adminURL+"/readyz")
	if err != nil {
		return fmt.Errorf("readyz check failed: %w", err)
	}

	fmt.Printf("live:  %s\n", statusLabel(liveCode))
	fmt.Printf("ready: %s\n", statusLabel(readyCode))
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	client := httpClient()
	resp, err := client.Get(adminURL + "/metrics")
	if err != nil {
		return fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading metrics response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metrics endpoint returned %d: %s", resp.StatusCode, body)
	}

	fmt.Print(string(body))
	return nil
}

func getStatus(client *http.Client, url string) (int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func statusLabel(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return fmt.Sprintf("not ok (status %d)", code)
}
