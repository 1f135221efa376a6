package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce-dashboard/internal/database"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/rfm"

	"go.uber.org/zap"
)

// RFMScopeAllOrders marks RFM results computed over the whole order table,
// regardless of the date filter applied to the rest of the dashboard.
const RFMScopeAllOrders = "all_orders"

const (
	DefaultTopCategories = 5
	DefaultTopStates     = 10
)

type Options struct {
	// Range filters the overview and the daily trend. Nil means the full
	// span of the order table.
	Range         *metrics.DateRange
	TopCategories int
	TopStates     int
	// Memo, when set, serves repeated RFM computations from cache.
	Memo *rfm.Memo
	// Recorder, when set, receives the duration of every Build.
	Recorder *Recorder
}

type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Dashboard is everything the single-page view renders.
type Dashboard struct {
	GeneratedAt    time.Time                 `json:"generated_at"`
	Start          string                    `json:"start"`
	End            string                    `json:"end"`
	Overview       metrics.Summary           `json:"overview"`
	DailyOrders    []metrics.DayCount        `json:"daily_orders"`
	MonthlyOrders  []metrics.MonthCount      `json:"monthly_orders"`
	TopCategories  []metrics.CategoryRevenue `json:"top_categories"`
	CustomerStates []metrics.StateCount      `json:"customer_states"`
	ReviewScores   []metrics.ScoreCount      `json:"review_scores"`
	PriceFreight   []metrics.PricePoint      `json:"price_freight"`
	Geo            metrics.GeoDistribution   `json:"geo"`
	RFM            *rfm.Result               `json:"rfm,omitempty"`
	RFMScope       string                    `json:"rfm_scope"`
	RFMError       string                    `json:"rfm_error,omitempty"`
	Stages         []StageTiming             `json:"stages"`

	rfmErr error
}

// RFMErr returns the segmentation failure, if any, with its type intact.
func (d *Dashboard) RFMErr() error {
	return d.rfmErr
}

// Run loads a snapshot from src and builds the dashboard. Load failures
// are fatal; segmentation failures only degrade the result.
func Run(ctx context.Context, src database.Source, opts Options, logger *zap.Logger) (*Dashboard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	tables, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded",
		zap.Int("orders", len(tables.Orders)),
		zap.Int("order_items", len(tables.OrderItems)),
		zap.Duration("elapsed", time.Since(start)),
	)

	d, err := Build(ctx, tables, opts, logger)
	if err != nil {
		return nil, err
	}
	d.Stages = append([]StageTiming{{Stage: "load", Duration: time.Since(start) - totalStages(d.Stages)}}, d.Stages...)
	return d, nil
}

// Build computes the dashboard from an in-memory snapshot.
func Build(ctx context.Context, tables *dataset.Tables, opts Options, logger *zap.Logger) (*Dashboard, error) {
	if tables == nil {
		return nil, errors.New("no dataset")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopCategories <= 0 {
		opts.TopCategories = DefaultTopCategories
	}
	if opts.TopStates <= 0 {
		opts.TopStates = DefaultTopStates
	}
	buildStart := time.Now()
	d := &Dashboard{GeneratedAt: buildStart.UTC(), RFMScope: RFMScopeAllOrders}

	stage := func(name string, fn func()) {
		t := time.Now()
		fn()
		d.Stages = append(d.Stages, StageTiming{Stage: name, Duration: time.Since(t)})
	}

	var filtered []dataset.Order
	stage("filter", func() {
		r := metrics.DefaultRange(tables.Orders)
		if opts.Range != nil {
			r = *opts.Range
		}
		d.Start, d.End = r.Start.Format(metrics.DateLayout), r.End.Format(metrics.DateLayout)
		filtered = metrics.FilterOrders(tables.Orders, r)
	})

	stage("aggregate", func() {
		d.Overview = metrics.Overview(filtered, metrics.ItemsForOrders(tables.OrderItems, filtered))
		d.DailyOrders = metrics.DailyOrders(filtered)
		d.MonthlyOrders = metrics.MonthlyOrders(tables.Orders)
		d.TopCategories = metrics.TopCategories(tables.OrderItems, tables.Products, opts.TopCategories)
		d.CustomerStates = metrics.CustomerStates(tables.Customers, opts.TopStates)
		d.ReviewScores = metrics.ReviewScores(tables.Reviews)
		d.PriceFreight = metrics.PriceFreight(tables.OrderItems)
		d.Geo = metrics.Geo(tables.Customers, tables.Sellers, tables.Geolocation)
	})

	var rfmErr error
	stage("rfm", func() {
		if opts.Memo != nil {
			d.RFM, rfmErr = opts.Memo.Compute(ctx, tables.Orders, tables.OrderItems)
		} else {
			d.RFM, rfmErr = rfm.Compute(tables.Orders, tables.OrderItems)
		}
	})
	if rfmErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("rfm segmentation skipped", zap.Error(rfmErr))
		d.RFM = nil
		d.RFMError = rfmErr.Error()
		d.rfmErr = rfmErr
	}

	if opts.Recorder != nil {
		opts.Recorder.Record(time.Since(buildStart))
	}
	logger.Debug("dashboard built",
		zap.String("range", d.Start+".."+d.End),
		zap.Int("filtered_orders", len(filtered)),
		zap.Bool("rfm", d.RFM != nil),
		zap.Duration("elapsed", time.Since(buildStart)),
	)
	return d, nil
}

func totalStages(stages []StageTiming) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += s.Duration
	}
	return total
}
