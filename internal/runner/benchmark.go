package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/rfm"

	"go.uber.org/zap"
)

type BenchmarkOptions struct {
	Concurrency int
	Duration    time.Duration
	// Memo routes every operation through the cache instead of the
	// engine.
	Memo *rfm.Memo
}

type BenchmarkResult struct {
	Operations     int64         `json:"operations"`
	Errors         int64         `json:"errors"`
	Throughput     float64       `json:"throughput"`
	P95Latency     time.Duration `json:"p95_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
	AverageLatency time.Duration `json:"average_latency"`
	ErrorRate      float64       `json:"error_rate"`
	TotalTime      time.Duration `json:"total_time"`
	// DataIntegrity reports whether every run produced the same segments.
	DataIntegrity bool `json:"data_integrity"`
}

// Benchmark computes RFM segments over tables repeatedly from Concurrency
// goroutines until Duration elapses or ctx is done.
func Benchmark(ctx context.Context, tables *dataset.Tables, opts BenchmarkOptions, logger *zap.Logger) (*BenchmarkResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Duration <= 0 {
		return nil, errors.New("benchmark duration must be positive")
	}

	compute := func() (*rfm.Result, error) {
		if opts.Memo != nil {
			return opts.Memo.Compute(ctx, tables.Orders, tables.OrderItems)
		}
		return rfm.Compute(tables.Orders, tables.OrderItems)
	}

	reference, err := rfm.Compute(tables.Orders, tables.OrderItems)
	if err != nil {
		return nil, err
	}
	want := segmentCodes(reference)

	var (
		wg         sync.WaitGroup
		operations atomic.Int64
		failures   atomic.Int64
		mismatches atomic.Int64
	)
	recorder := NewRecorder()

	logger.Info("benchmark started",
		zap.Int("concurrency", opts.Concurrency),
		zap.Duration("duration", opts.Duration),
		zap.Int("orders", len(tables.Orders)),
	)

	totalStartTime := time.Now()
	deadline := totalStartTime.Add(opts.Duration)
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) && ctx.Err() == nil {
				opStartTime := time.Now()
				r, err := compute()
				recorder.Record(time.Since(opStartTime))
				if err != nil {
					failures.Add(1)
					continue
				}
				operations.Add(1)
				if segmentCodes(r) != want {
					mismatches.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	total := time.Since(totalStartTime)
	summary := recorder.Summary()
	result := &BenchmarkResult{
		Operations:     operations.Load(),
		Errors:         failures.Load(),
		Throughput:     float64(operations.Load()) / total.Seconds(),
		P95Latency:     summary.P95Latency,
		P99Latency:     summary.P99Latency,
		AverageLatency: summary.AverageLatency,
		TotalTime:      total,
		DataIntegrity:  mismatches.Load() == 0,
	}
	if attempts := result.Operations + result.Errors; attempts > 0 {
		result.ErrorRate = float64(result.Errors) / float64(attempts)
	}
	return result, nil
}

func segmentCodes(r *rfm.Result) string {
	b := make([]byte, 0, len(r.Customers)*3)
	for _, c := range r.Customers {
		b = append(b, c.RFMScore...)
	}
	return string(b)
}
