package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/rfm"
	"ecommerce-dashboard/internal/runner"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server answers the dashboard's JSON API from a snapshot loaded at
// startup.
type Server struct {
	tables *dataset.Tables
	opts   runner.Options
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the router. A nil Recorder in opts is replaced so request
// build latencies are always tracked.
func New(tables *dataset.Tables, opts runner.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = runner.NewRecorder()
	}
	s := &Server{tables: tables, opts: opts, logger: logger}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.GET("/healthz", s.health)

	api := engine.Group("/api")
	api.GET("/dashboard", s.dashboard)
	api.GET("/overview", s.overview)
	api.GET("/trends/daily", s.dailyTrend)
	api.GET("/trends/monthly", s.monthlyTrend)
	api.GET("/products/top", s.topCategories)
	api.GET("/products/price-freight", s.priceFreight)
	api.GET("/customers/states", s.customerStates)
	api.GET("/reviews/scores", s.reviewScores)
	api.GET("/geo", s.geo)
	api.GET("/rfm", s.rfmTable)
	api.GET("/rfm/customers/:id", s.rfmCustomer)
	api.GET("/rfm/heatmap", s.rfmHeatmap)
	api.GET("/stats", s.stats)

	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// dateRange reads ?start= and ?end=. A missing bound falls back to the
// first or last purchase day.
func (s *Server) dateRange(c *gin.Context) (metrics.DateRange, bool) {
	def := metrics.DefaultRange(s.tables.Orders)
	start := c.DefaultQuery("start", def.Start.Format(metrics.DateLayout))
	end := c.DefaultQuery("end", def.End.Format(metrics.DateLayout))
	r, err := metrics.NewDateRange(start, end)
	if err != nil {
		badRequest(c, err.Error())
		return metrics.DateRange{}, false
	}
	return r, true
}

func queryLimit(c *gin.Context, def int) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		badRequest(c, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) dashboard(c *gin.Context) {
	r, ok := s.dateRange(c)
	if !ok {
		return
	}
	opts := s.opts
	opts.Range = &r
	d, err := runner.Build(c.Request.Context(), s.tables, opts, s.logger)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	success(c, d)
}

func (s *Server) overview(c *gin.Context) {
	r, ok := s.dateRange(c)
	if !ok {
		return
	}
	filtered := metrics.FilterOrders(s.tables.Orders, r)
	success(c, gin.H{
		"start":   r.Start.Format(metrics.DateLayout),
		"end":     r.End.Format(metrics.DateLayout),
		"summary": metrics.Overview(filtered, metrics.ItemsForOrders(s.tables.OrderItems, filtered)),
	})
}

func (s *Server) dailyTrend(c *gin.Context) {
	r, ok := s.dateRange(c)
	if !ok {
		return
	}
	success(c, metrics.DailyOrders(metrics.FilterOrders(s.tables.Orders, r)))
}

func (s *Server) monthlyTrend(c *gin.Context) {
	success(c, metrics.MonthlyOrders(s.tables.Orders))
}

func (s *Server) topCategories(c *gin.Context) {
	n, ok := queryLimit(c, s.topCategoriesDefault())
	if !ok {
		return
	}
	success(c, metrics.TopCategories(s.tables.OrderItems, s.tables.Products, n))
}

func (s *Server) priceFreight(c *gin.Context) {
	success(c, metrics.PriceFreight(s.tables.OrderItems))
}

func (s *Server) customerStates(c *gin.Context) {
	n, ok := queryLimit(c, s.topStatesDefault())
	if !ok {
		return
	}
	success(c, metrics.CustomerStates(s.tables.Customers, n))
}

func (s *Server) reviewScores(c *gin.Context) {
	success(c, metrics.ReviewScores(s.tables.Reviews))
}

func (s *Server) geo(c *gin.Context) {
	success(c, metrics.Geo(s.tables.Customers, s.tables.Sellers, s.tables.Geolocation))
}

func (s *Server) computeRFM(c *gin.Context) (*rfm.Result, bool) {
	var (
		result *rfm.Result
		err    error
	)
	if s.opts.Memo != nil {
		result, err = s.opts.Memo.Compute(c.Request.Context(), s.tables.Orders, s.tables.OrderItems)
	} else {
		result, err = rfm.Compute(s.tables.Orders, s.tables.OrderItems)
	}
	switch {
	case err == nil:
		return result, true
	case errors.Is(err, rfm.ErrDataQuality), errors.Is(err, rfm.ErrMissingField):
		fail(c, http.StatusUnprocessableEntity, ErrCodeDataQuality, err.Error())
	default:
		s.logger.Error("rfm computation failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
	return nil, false
}

// rfmTable lists every customer's scores, or one segment with ?segment=.
func (s *Server) rfmTable(c *gin.Context) {
	result, ok := s.computeRFM(c)
	if !ok {
		return
	}
	customers := result.Customers
	if code := c.Query("segment"); code != "" {
		customers = result.Segment(code)
		if customers == nil {
			customers = []rfm.CustomerRFM{}
		}
	}
	success(c, gin.H{
		"reference_time": result.ReferenceTime,
		"scope":          runner.RFMScopeAllOrders,
		"customers":      customers,
	})
}

func (s *Server) rfmCustomer(c *gin.Context) {
	result, ok := s.computeRFM(c)
	if !ok {
		return
	}
	row, found := result.Customer(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "customer not found")
		return
	}
	success(c, row)
}

func (s *Server) rfmHeatmap(c *gin.Context) {
	result, ok := s.computeRFM(c)
	if !ok {
		return
	}
	success(c, gin.H{
		"rows":    "r_score",
		"columns": "f_score",
		"values":  result.Heatmap.Matrix(),
	})
}

func (s *Server) stats(c *gin.Context) {
	out := gin.H{"dashboard_builds": s.opts.Recorder.Summary()}
	if s.opts.Memo != nil {
		out["rfm_cache"] = s.opts.Memo.Stats()
	}
	success(c, out)
}

func (s *Server) topCategoriesDefault() int {
	if s.opts.TopCategories > 0 {
		return s.opts.TopCategories
	}
	return runner.DefaultTopCategories
}

func (s *Server) topStatesDefault() int {
	if s.opts.TopStates > 0 {
		return s.opts.TopStates
	}
	return runner.DefaultTopStates
}
