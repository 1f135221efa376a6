package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/logger"
	"ecommerce-dashboard/internal/rfm"
	"ecommerce-dashboard/internal/runner"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	customers := flag.Int("customers", 1000, "number of synthetic customers")
	orders := flag.Int("orders", 5000, "number of synthetic orders")
	seed := flag.Int64("seed", 1, "synthetic data seed")
	concurrency := flag.Int("concurrency", 0, "number of concurrent workers (defaults to benchmark_settings)")
	duration := flag.Duration("duration", 0, "duration of the test (defaults to benchmark_settings)")
	cached := flag.Bool("cached", false, "route every computation through the in-process cache")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		exitCode = 1
		return
	}
	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		exitCode = 1
		return
	}
	defer zl.Sync()

	if *concurrency <= 0 {
		*concurrency = cfg.BenchmarkSettings.DefaultConcurrency
	}
	if *duration <= 0 {
		if *duration, err = cfg.BenchmarkDuration(); err != nil {
			log.Printf("Invalid benchmark duration: %v", err)
			exitCode = 1
			return
		}
	}

	opts := dataset.DefaultGenerateOptions()
	opts.Customers, opts.Orders, opts.Seed = *customers, *orders, *seed
	tables := dataset.Generate(opts)

	benchOpts := runner.BenchmarkOptions{Concurrency: *concurrency, Duration: *duration}
	if *cached {
		memo, err := rfm.NewMemo(cfg.Cache.Size, rfm.WithLogger(zl))
		if err != nil {
			log.Printf("Failed to create cache: %v", err)
			exitCode = 1
			return
		}
		benchOpts.Memo = memo
	}

	fmt.Printf("Running rfm benchmark over %d orders for %s with %d workers...\n", len(tables.Orders), *duration, *concurrency)

	ctx, cancel := context.WithTimeout(context.Background(), *duration+time.Minute)
	defer cancel()

	result, err := runner.Benchmark(ctx, tables, benchOpts, zl)
	if err != nil {
		log.Printf("Benchmark failed: %v", err)
		exitCode = 1
		return
	}

	jsonOutput, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Printf("Failed to marshal result: %v", err)
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))
}
