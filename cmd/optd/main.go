package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aeroopt/optimization-core/internal/controller"
	"github.com/aeroopt/optimization-core/internal/improvement"
	"github.com/aeroopt/optimization-core/internal/oracle"
	"github.com/aeroopt/optimization-core/internal/store"
	"github.com/aeroopt/optimization-core/pkg/config"
	"github.com/aeroopt/optimization-core/pkg/logger"
)

func main() {
	var (
		configPath string
		storeKind  string
		dbPath     string
		oracleMode string
		maxIter    int
		clMin      float64
		reynolds   int
		seed       int64
		timeout    string
		logLevel   string
		logFormat  string
	)

	flag.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flag.StringVar(&storeKind, "store", "", "persistence backend (memory or sqlite)")
	flag.StringVar(&dbPath, "db", "", "sqlite database path")
	flag.StringVar(&oracleMode, "oracle", "", "evaluation oracle: sim or an http(s) URL")
	flag.IntVar(&maxIter, "max-iter", 0, "maximum optimization iterations")
	flag.Float64Var(&clMin, "cl-min", 0, "minimum lift coefficient constraint")
	flag.IntVar(&reynolds, "reynolds", 0, "Reynolds number for evaluations")
	flag.Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	flag.StringVar(&timeout, "timeout", "", "wall-clock run timeout, e.g. 2h")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "", "log format (json or text)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, flagValues{
		storeKind:  storeKind,
		dbPath:     dbPath,
		oracleMode: oracleMode,
		maxIter:    maxIter,
		clMin:      clMin,
		reynolds:   reynolds,
		seed:       seed,
		timeout:    timeout,
		logLevel:   logLevel,
		logFormat:  logFormat,
	})

	logger.SetDefault(logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr))

	st, err := buildStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	orc, err := buildOracle(cfg)
	if err != nil {
		logger.Error("failed to build oracle", "error", err)
		os.Exit(1)
	}

	ctrl, err := controller.New(cfg, st, orc)
	if err != nil {
		logger.Error("failed to wire controller", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := ctrl.Run(ctx)
	if report != nil {
		fmt.Println(improvement.FormatText(report))
	}
	if err != nil {
		if errors.Is(err, controller.ErrSafetyLimit) {
			logger.Warn("run stopped by the safety limit")
			os.Exit(2)
		}
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type flagValues struct {
	storeKind  string
	dbPath     string
	oracleMode string
	maxIter    int
	clMin      float64
	reynolds   int
	seed       int64
	timeout    string
	logLevel   string
	logFormat  string
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

// applyFlags overrides configuration fields for every flag the caller set.
// Zero values mean "not set" and leave the config alone.
func applyFlags(cfg *config.Config, f flagValues) {
	if f.storeKind != "" {
		cfg.Store.Backend = f.storeKind
	}
	if f.dbPath != "" {
		cfg.Store.Path = f.dbPath
	}
	if f.oracleMode == "sim" {
		cfg.Oracle.Mode = "sim"
		cfg.Oracle.URL = ""
	} else if f.oracleMode != "" {
		cfg.Oracle.Mode = "http"
		cfg.Oracle.URL = f.oracleMode
	}
	if f.maxIter > 0 {
		cfg.Optimization.MaxIterations = f.maxIter
	}
	if f.clMin > 0 {
		cfg.Optimization.ClMin = f.clMin
	}
	if f.reynolds > 0 {
		cfg.Optimization.Reynolds = f.reynolds
	}
	if f.seed != 0 {
		cfg.Optimization.Seed = f.seed
	}
	if f.timeout != "" {
		cfg.Optimization.Timeout = f.timeout
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "optimization.db"
		}
		return store.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildOracle(cfg *config.Config) (oracle.Oracle, error) {
	switch cfg.Oracle.Mode {
	case "", "sim":
		return oracle.NewSimOracle(cfg.Optimization.Seed), nil
	case "http":
		if cfg.Oracle.URL == "" {
			return nil, fmt.Errorf("http oracle requires a URL")
		}
		opts := []oracle.HTTPOption{}
		if cfg.Oracle.TimeoutSeconds > 0 {
			opts = append(opts, oracle.WithTimeout(time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second))
		}
		if cfg.Oracle.RatePerSecond > 0 {
			opts = append(opts, oracle.WithRateLimit(cfg.Oracle.RatePerSecond))
		}
		return oracle.NewHTTPOracle(cfg.Oracle.URL, opts...), nil
	default:
		return nil, fmt.Errorf("unknown oracle mode %q", cfg.Oracle.Mode)
	}
}
