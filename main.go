package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/fetcher/internal/infra/fetch"
	"github.com/vietddude/fetcher/internal/upstream"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})

	// 1. Start the flaky upstream on a random local port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: upstream.NewHandler()}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer func() {
		_ = srv.Close()
	}()
	base := "http://" + ln.Addr().String()

	// 2. Create the executor with default retry settings
	executor, tr := fetch.New(fetch.DefaultTransportConfig, fetch.DefaultRetryConfig)
	defer func() {
		_ = tr.Close()
	}()

	fmt.Println("=== Fetching from flaky upstream ===")
	fmt.Println()

	ctx := context.Background()
	for _, path := range []string{"/ok", "/flaky?fail=2&key=demo", "/503", "/429", "/truncate", "/reset", "/"} {
		out := executor.Execute(ctx, base+path)

		fmt.Printf("%s\n", path)
		fmt.Printf("  Attempts: %d\n", out.Attempts)
		fmt.Printf("  Delays:   %v\n", out.Delays)
		fmt.Printf("  Reason:   %s\n", out.Reason)
		if out.Result.Err != nil {
			fmt.Printf("  Err:      %v\n", out.Result.Err)
		} else {
			fmt.Printf("  Response: %s\n", out.Result.Response.Status)
		}
		fmt.Println()
	}

	// 3. Show transport stats
	stats := tr.Monitor.Stats()
	fmt.Println("=== Transport Stats ===")
	fmt.Printf("Responses: %d, Errors: %d, 429s: %d\n", stats.Responses, stats.Errors, stats.ThrottleCount429)
	fmt.Printf("Average latency: %v\n", stats.AverageLatency.Round(time.Millisecond))
}
