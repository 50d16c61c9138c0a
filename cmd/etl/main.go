// Command etl runs one station climatology analysis from an analysis plan
// and publishes the annual and monthly anomalies to the configured sinks.
// When HTTP_ADDR is set it keeps serving health, metrics and the latest run
// until stopped.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/station-climate-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/station-climate-etl/internal/adapter/kafka"
	"github.com/couchcryptid/station-climate-etl/internal/adapter/parquetsink"
	"github.com/couchcryptid/station-climate-etl/internal/adapter/tabular"
	"github.com/couchcryptid/station-climate-etl/internal/config"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	plan, err := config.LoadPlan(cfg.AnalysisPlan)
	if err != nil {
		logger.Error("failed to load analysis plan", "path", cfg.AnalysisPlan, "error", err)
		return 1
	}

	var sinks []pipeline.ResultSink
	if cfg.ParquetOutput != "" {
		sink, err := parquetsink.NewSink(cfg.ParquetOutput, logger)
		if err != nil {
			logger.Error("failed to create parquet sink", "error", err)
			return 1
		}
		sinks = append(sinks, sink)
		logger.Info("parquet sink enabled", "dir", cfg.ParquetOutput)
	}

	// Published messages cannot be withdrawn, so Kafka goes after every sink
	// that can be rolled back.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}
	if len(sinks) == 0 {
		logger.Warn("no result sinks configured, anomalies are only logged and served over HTTP")
	}

	p := pipeline.New(tabular.NewReader(), sinks, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := 0
	if _, err := p.Run(ctx, plan); err != nil {
		code = 1
	}

	if srv != nil {
		logger.Info("run finished, serving until stopped", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return code
}
