// Command asarl2d is the long-running sea state retrieval daemon. It consumes
// processing jobs from Kafka (or from a watched incoming directory), retrieves
// Level-2P products from ASAR wave mode Level-1 inputs, writes them as netCDF,
// and announces them on the products topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/umr-lops/asar-seastate-processor/internal/adapter/hindcast"
	"github.com/umr-lops/asar-seastate-processor/internal/adapter/httpadapter"
	kafkaadapter "github.com/umr-lops/asar-seastate-processor/internal/adapter/kafka"
	"github.com/umr-lops/asar-seastate-processor/internal/adapter/netcdf"
	"github.com/umr-lops/asar-seastate-processor/internal/config"
	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/extract"
	"github.com/umr-lops/asar-seastate-processor/internal/model"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
	"github.com/umr-lops/asar-seastate-processor/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	product, err := config.LoadProduct(cfg.ConfigDir, cfg.ProductID)
	if err != nil {
		logger.Error("failed to load product config", "error", err, "product_id", cfg.ProductID)
		os.Exit(1)
	}
	m, err := model.Load(filepath.Join(cfg.ModelDir, product.ModelName+".json"))
	if err != nil {
		logger.Error("failed to load model", "error", err, "model", product.ModelName)
		os.Exit(1)
	}
	logger.Info("model loaded", "name", m.Name(), "version", m.Version(), "outputs", m.Outputs())

	ncReader := netcdf.NewReader()

	var reference *domain.Dataset
	if product.ReferenceProduct != "" {
		reference, err = ncReader.Read(product.ReferenceProduct)
		if err != nil {
			logger.Error("failed to load reference product", "error", err, "path", product.ReferenceProduct)
			os.Exit(1)
		}
	}

	// Hindcast relaxation is feature-flagged via HINDCAST_URL / HINDCAST_ENABLED.
	var provider domain.HindcastProvider
	if cfg.HindcastEnabled {
		client := hindcast.NewClient(cfg.HindcastURL, cfg.HindcastTimeout, logger, metrics)
		provider = hindcast.NewCachedProvider(client, cfg.HindcastCacheSize, metrics)
		metrics.HindcastEnabled.Set(1)
		logger.Info("hindcast relaxation enabled",
			"url", cfg.HindcastURL, "weight", cfg.HindcastWeight, "cache_size", cfg.HindcastCacheSize)
	} else {
		logger.Info("hindcast relaxation disabled")
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(pipeline.TransformerConfig{
		Product:        product,
		ProductID:      cfg.ProductID,
		Model:          m,
		Reference:      reference,
		Hindcast:       provider,
		HindcastWeight: cfg.HindcastWeight,
		SaveDir:        cfg.SaveDirectory,
		DateDirs:       cfg.DateDirectories,
		Overwrite:      cfg.Overwrite,
	}, ncReader, logger, metrics)
	loader := pipeline.NewLoader(netcdf.NewWriter(logger), writer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Jobs come from a watched directory when WATCH_DIRECTORY is set,
	// otherwise from the Kafka jobs topic.
	var extractor pipeline.BatchExtractor
	var closeExtractor func() error
	if cfg.WatchDirectory != "" {
		watcher, err := extract.NewWatchExtractor(cfg.WatchDirectory, cfg.Overwrite, cfg.BatchFlushInterval, logger)
		if err != nil {
			logger.Error("failed to watch input directory", "error", err, "dir", cfg.WatchDirectory)
			os.Exit(1)
		}
		go watcher.Start(ctx)
		logger.Info("watching input directory", "dir", cfg.WatchDirectory)
		extractor = watcher
		closeExtractor = watcher.Close
	} else {
		reader := kafkaadapter.NewReader(cfg, logger)
		extractor = reader
		closeExtractor = reader.Close
	}

	p := pipeline.New(extractor, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start retrieval pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := closeExtractor(); err != nil {
		logger.Error("extractor close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
