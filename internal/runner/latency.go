package runner

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder collects latencies in an HDR histogram with microsecond
// resolution. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	dropped   int64
}

// LatencySummary is a point-in-time view of a Recorder.
type LatencySummary struct {
	Count          int64         `json:"count"`
	P50Latency     time.Duration `json:"p50_latency"`
	P95Latency     time.Duration `json:"p95_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
	MaxLatency     time.Duration `json:"max_latency"`
	AverageLatency time.Duration `json:"average_latency"`
	// Dropped counts observations the histogram refused.
	Dropped int64 `json:"dropped,omitempty"`
}

func NewRecorder() *Recorder {
	// Max latency of 10 seconds, significant figures of 3
	return &Recorder{histogram: hdrhistogram.New(1, 10000000, 3)}
}

// Record adds one observation. Values beyond the histogram range are
// clamped to its maximum.
func (r *Recorder) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if highest := r.histogram.HighestTrackableValue(); us > highest {
		us = highest
	}
	if err := r.histogram.RecordValue(us); err != nil {
		r.dropped++
	}
}

func (r *Recorder) Summary() LatencySummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.histogram
	return LatencySummary{
		Count:          h.TotalCount(),
		P50Latency:     time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P95Latency:     time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99Latency:     time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		MaxLatency:     time.Duration(h.Max()) * time.Microsecond,
		AverageLatency: time.Duration(h.Mean()) * time.Microsecond,
		Dropped:        r.dropped,
	}
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histogram.Reset()
	r.dropped = 0
}
