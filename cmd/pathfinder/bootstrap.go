package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/engine"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
)

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	engine   *engine.Engine
}

func (a *app) Close() {
	if a.engine != nil {
		_ = a.engine.Close()
	}
	_ = a.logger.Sync()
}

// bootstrap loads config, builds the logger and metrics and constructs the
// engine. Configuration problems surface here, before any stage runs.
func bootstrap(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.General.LogLevel, cfg.General.Debug)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		if metrics, err = telemetry.New(a.registry); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	eng, err := engine.New(ctx, cfg, engine.WithLogger(logger), engine.WithMetrics(metrics))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a.engine = eng
	return a, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
