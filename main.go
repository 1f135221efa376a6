package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/database"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/logger"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/report"
	"ecommerce-dashboard/internal/rfm"
	"ecommerce-dashboard/internal/runner"
	"ecommerce-dashboard/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootFlags struct {
	configPath string
	envFile    string
	source     string
}

var rootCmd = &cobra.Command{
	Use:           "dashboard",
	Short:         "E-commerce dashboard backend with RFM customer segmentation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&rootFlags.envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVarP(&rootFlags.source, "source", "s", "", "override the configured source (csv, postgres, mysql, sqlite, mongo)")

	rootCmd.AddCommand(newReportCmd(), newServeCmd(), newSeedCmd())
}

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = 1
	}
}

// setup loads config and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	if err := config.LoadEnvFile(rootFlags.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadConfig(rootFlags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if rootFlags.source != "" {
		cfg.Source = rootFlags.source
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func openSource(ctx context.Context, cfg *config.Config, kind string) (database.Source, error) {
	dsn, err := cfg.DSN(kind)
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, kind, dsn)
}

// newMemo returns the RFM cache, backed by Redis when an address is
// configured. The returned func releases the Redis client.
func newMemo(cfg *config.Config, log *zap.Logger) (*rfm.Memo, func(), error) {
	opts := []rfm.MemoOption{rfm.WithLogger(log)}
	closeStore := func() {}

	if cfg.Cache.RedisAddr != "" {
		ttl, err := cfg.CacheTTL()
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      ttl,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-process cache only", zap.Error(err))
		} else {
			opts = append(opts, rfm.WithStore(store))
			closeStore = func() { store.Close() }
		}
	}

	memo, err := rfm.NewMemo(cfg.Cache.Size, opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return memo, closeStore, nil
}

func newReportCmd() *cobra.Command {
	var start, end, outDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the dashboard once and print or export it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := cmd.Context()

			opts := runner.Options{
				TopCategories: cfg.Dashboard.TopCategories,
				TopStates:     cfg.Dashboard.TopStates,
			}
			if start != "" || end != "" {
				if start == "" || end == "" {
					return errors.New("--start and --end must be given together")
				}
				r, err := metrics.NewDateRange(start, end)
				if err != nil {
					return err
				}
				opts.Range = &r
			}

			src, err := openSource(ctx, cfg, cfg.Source)
			if err != nil {
				return err
			}
			defer src.Close()

			d, err := runner.Run(ctx, src, opts, log)
			if err != nil {
				return err
			}
			if d.RFMError != "" {
				log.Warn("report built without rfm segments", zap.String("reason", d.RFMError))
			}

			if outDir == "" {
				out, err := json.MarshalIndent(d, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			path := report.TimestampedFilename(outDir, "dashboard", time.Now())
			if err := report.ExportJSON(path, d); err != nil {
				return err
			}
			log.Info("report exported", zap.String("path", path))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first purchase day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last purchase day to include (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write a timestamped report file into this directory instead of stdout")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := cmd.Context()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			src, err := openSource(ctx, cfg, cfg.Source)
			if err != nil {
				return err
			}
			tables, err := src.Load(ctx)
			src.Close()
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			log.Info("dataset loaded", zap.String("source", cfg.Source), zap.Int("orders", len(tables.Orders)))

			memo, closeMemo, err := newMemo(cfg, log)
			if err != nil {
				return err
			}
			defer closeMemo()

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(tables, runner.Options{
				TopCategories: cfg.Dashboard.TopCategories,
				TopStates:     cfg.Dashboard.TopStates,
				Memo:          memo,
			}, log)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var (
		target    string
		synthetic bool
		genOpts   = dataset.DefaultGenerateOptions()
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Copy the dataset, or a synthetic one, into a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := cmd.Context()

			var tables *dataset.Tables
			if synthetic {
				tables = dataset.Generate(genOpts)
			} else {
				src, err := openSource(ctx, cfg, cfg.Source)
				if err != nil {
					return err
				}
				tables, err = src.Load(ctx)
				src.Close()
				if err != nil {
					return fmt.Errorf("load dataset: %w", err)
				}
			}

			dst, err := openSource(ctx, cfg, target)
			if err != nil {
				return err
			}
			defer dst.Close()
			seeder, ok := dst.(database.Seeder)
			if !ok {
				return fmt.Errorf("%s cannot be seeded", target)
			}

			started := time.Now()
			if err := seeder.Seed(ctx, tables); err != nil {
				return fmt.Errorf("seed %s: %w", target, err)
			}
			log.Info("database seeded",
				zap.String("target", target),
				zap.Int("orders", len(tables.Orders)),
				zap.Int("order_items", len(tables.OrderItems)),
				zap.Duration("elapsed", time.Since(started)),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", database.KindSQLite, "database to seed (postgres, mysql, sqlite, mongo)")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "seed generated data instead of the configured source")
	cmd.Flags().IntVar(&genOpts.Customers, "customers", genOpts.Customers, "synthetic customers")
	cmd.Flags().IntVar(&genOpts.Orders, "orders", genOpts.Orders, "synthetic orders")
	cmd.Flags().Int64Var(&genOpts.Seed, "seed", genOpts.Seed, "synthetic data seed")
	return cmd
}
