// Command asarl2 runs the sea state retrieval over a fixed set of Level-1
// products and exits. The input may be a single product, a directory tree, or
// a .txt listing with one path per line.
//
// Usage:
//
//	asarl2 \
//	  -input /data/l1/2010/017 \
//	  -save-dir /data/l2p \
//	  -product-id E00 \
//	  -config-dir config \
//	  -model-dir models
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/umr-lops/asar-seastate-processor/internal/adapter/netcdf"
	"github.com/umr-lops/asar-seastate-processor/internal/config"
	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/extract"
	"github.com/umr-lops/asar-seastate-processor/internal/model"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
	"github.com/umr-lops/asar-seastate-processor/internal/pipeline"
)

func main() {
	input := flag.String("input", "", "Level-1 product, directory, or .txt listing")
	saveDir := flag.String("save-dir", "", "output directory for Level-2P products")
	productID := flag.String("product-id", "", "3-character processing ID, selects the product config")
	configDir := flag.String("config-dir", "config", "directory holding product YAML configs")
	modelDir := flag.String("model-dir", "models", "directory holding model weight bundles")
	batchSize := flag.Int("batch-size", 16, "products per processing batch")
	noDateDirs := flag.Bool("no-date-dirs", false, "write products directly under save-dir, without YYYY/DDD subdirectories")
	overwrite := flag.Bool("overwrite", false, "replace existing output products")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	if *input == "" || *saveDir == "" || *productID == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*input, *saveDir, *productID, *configDir, *modelDir, *batchSize, !*noDateDirs, *overwrite, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(input, saveDir, productID, configDir, modelDir string, batchSize int, dateDirs, overwrite, verbose bool) int {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(level, "text")
	metrics := observability.NewUnregisteredMetrics()

	product, err := config.LoadProduct(configDir, productID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load product config: %v\n", err)
		return 1
	}
	m, err := model.Load(filepath.Join(modelDir, product.ModelName+".json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load model: %v\n", err)
		return 1
	}

	ncReader := netcdf.NewReader()
	var reference *domain.Dataset
	if product.ReferenceProduct != "" {
		reference, err = ncReader.Read(product.ReferenceProduct)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load reference product: %v\n", err)
			return 1
		}
	}

	extractor, err := extract.NewListingExtractor(input, overwrite)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve input: %v\n", err)
		return 1
	}
	logger.Info("inputs resolved", "count", extractor.Len(), "input", input)

	transformer := pipeline.NewTransformer(pipeline.TransformerConfig{
		Product:   product,
		ProductID: productID,
		Model:     m,
		Reference: reference,
		SaveDir:   saveDir,
		DateDirs:  dateDirs,
		Overwrite: overwrite,
	}, ncReader, logger, metrics)
	loader := pipeline.NewLoader(netcdf.NewWriter(logger), nil, logger)

	p := pipeline.New(extractor, transformer, loader, logger, metrics, batchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		return 1
	}
	if n := p.FailedCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d inputs failed\n", n, extractor.Len())
		return 1
	}
	return 0
}
