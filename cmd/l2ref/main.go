// Command l2ref generates the blanked reference template used for land-only
// acquisitions. It runs one retrieval over an open-ocean Level-1 product with
// the same product config and model the daemon uses, keeps the first
// acquisition, blanks every float payload, and writes the result where the
// product config's reference_product points.
//
// Regenerate the template whenever the product layout changes (new outputs,
// new quality flags).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/umr-lops/asar-seastate-processor/internal/adapter/netcdf"
	"github.com/umr-lops/asar-seastate-processor/internal/config"
	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/model"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
	"github.com/umr-lops/asar-seastate-processor/internal/pipeline"
)

func main() {
	input := flag.String("input", "", "open-ocean Level-1 product to derive the template from")
	output := flag.String("output", "", "path to write the reference template")
	productID := flag.String("product-id", "", "3-character processing ID, selects the product config")
	configDir := flag.String("config-dir", "config", "directory holding product YAML configs")
	modelDir := flag.String("model-dir", "models", "directory holding model weight bundles")
	flag.Parse()

	if *input == "" || *output == "" || *productID == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*input, *output, *productID, *configDir, *modelDir); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(input, output, productID, configDir, modelDir string) error {
	logger := observability.NewLogger("info", "text")
	metrics := observability.NewUnregisteredMetrics()

	product, err := config.LoadProduct(configDir, productID)
	if err != nil {
		return fmt.Errorf("load product config: %w", err)
	}
	m, err := model.Load(filepath.Join(modelDir, product.ModelName+".json"))
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	ncReader := netcdf.NewReader()
	transformer := pipeline.NewTransformer(pipeline.TransformerConfig{
		Product:   product,
		ProductID: productID,
		Model:     m,
		SaveDir:   filepath.Dir(output),
		Overwrite: true,
	}, ncReader, logger, metrics)

	result, err := transformer.Transform(context.Background(), domain.Job{InputPath: input, Overwrite: true})
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", input, err)
	}

	ref, err := domain.BuildReferenceTemplate(result.Product)
	if err != nil {
		return fmt.Errorf("build template: %w", err)
	}
	if err := netcdf.NewWriter(logger).Write(output, ref); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	logger.Info("reference template written", "input", input, "output", output)
	return nil
}
