package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/umr-lops/asar-seastate-processor/internal/config"
	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/model"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
)

// DatasetReader opens a Level-1 product as a dataset.
type DatasetReader interface {
	Read(path string) (*domain.Dataset, error)
}

// TransformerConfig bundles the retrieval configuration an L2Transformer
// needs. Reference and Hindcast are optional.
type TransformerConfig struct {
	Product        *config.Product
	ProductID      string
	Model          *model.Model
	Reference      *domain.Dataset
	Hindcast       domain.HindcastProvider
	HindcastWeight float64
	SaveDir        string
	DateDirs       bool
	Overwrite      bool
}

// L2Transformer runs the sea state retrieval: read a Level-1 WV product,
// evaluate the empirical model, and format the result as a CCI Level-2P
// dataset.
type L2Transformer struct {
	cfg     TransformerConfig
	reader  DatasetReader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates an L2Transformer.
func NewTransformer(cfg TransformerConfig, reader DatasetReader, logger *slog.Logger, metrics *observability.Metrics) *L2Transformer {
	return &L2Transformer{cfg: cfg, reader: reader, logger: logger, metrics: metrics}
}

// Transform produces the Level-2P result for one job. It returns
// domain.ErrOutputExists when the output path is already populated and
// neither the job nor the transformer asks for overwriting.
func (t *L2Transformer) Transform(ctx context.Context, job domain.Job) (domain.L2Result, error) {
	start := time.Now()

	name, err := domain.ParseProductName(job.InputPath)
	if err != nil {
		return domain.L2Result{}, err
	}
	outputPath, err := domain.OutputPath(t.cfg.SaveDir, job.InputPath, t.cfg.ProductID, t.cfg.DateDirs)
	if err != nil {
		return domain.L2Result{}, err
	}
	if !t.cfg.Overwrite && !job.Overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			return domain.L2Result{}, fmt.Errorf("%s: %w", outputPath, domain.ErrOutputExists)
		}
	}

	l1, err := t.reader.Read(job.InputPath)
	if err != nil {
		return domain.L2Result{}, fmt.Errorf("read level-1 product: %w", err)
	}
	l1, err = t.preprocess(l1)
	if err != nil {
		return domain.L2Result{}, err
	}

	var l2 *domain.Dataset
	landOnly := domain.IsLandOnly(l1)
	if landOnly {
		t.logger.Info("acquisition entirely over land", "input", job.InputPath)
		l2, err = domain.BuildLandProduct(l1, t.cfg.Reference, t.cfg.Product.KeptVariables)
		if err != nil {
			return domain.L2Result{}, err
		}
	} else {
		l2, err = t.retrieve(ctx, l1)
		if err != nil {
			return domain.L2Result{}, err
		}
	}

	trackID, err := domain.FormatL2(l2, name, t.cfg.Product.Attributes)
	if err != nil {
		return domain.L2Result{}, err
	}
	l2.Attrs["retrieval_model"] = t.cfg.Model.Name()
	l2.Attrs["retrieval_model_version"] = t.cfg.Model.Version()

	return domain.L2Result{
		Product:    l2,
		InputPath:  job.InputPath,
		OutputPath: outputPath,
		TrackID:    trackID,
		LandOnly:   landOnly,
		Duration:   time.Since(start),
	}, nil
}

// preprocess applies the configured label drops and selects the VV
// polarization.
func (t *L2Transformer) preprocess(ds *domain.Dataset) (*domain.Dataset, error) {
	if pp := t.cfg.Product.Preprocessing; pp != nil {
		for dim, labels := range pp.DropSel {
			var err error
			ds, err = domain.DropLabels(ds, dim, labels)
			if err != nil {
				return nil, fmt.Errorf("drop %v from %q: %w", labels, dim, err)
			}
		}
	}
	if ds.Has("pol") {
		var err error
		ds, err = domain.SelectLabel(ds, "pol", "VV")
		if err != nil {
			return nil, fmt.Errorf("select VV polarization: %w", err)
		}
	}
	return ds, nil
}

// retrieve runs the model over every acquisition and assembles the Level-2
// dataset: kept Level-1 variables plus one per-acquisition variable per model
// output. Hindcast relaxation and output masking happen here too.
func (t *L2Transformer) retrieve(ctx context.Context, l1 *domain.Dataset) (*domain.Dataset, error) {
	rows, ok := l1.Dims["time"]
	if !ok {
		return nil, fmt.Errorf("level-1 dataset has no time dimension")
	}

	features, err := buildFeatures(l1, t.cfg.Model.Inputs(), rows)
	if err != nil {
		return nil, err
	}

	inferStart := time.Now()
	predictions, err := t.cfg.Model.Predict(rows, features)
	if err != nil {
		return nil, err
	}
	t.metrics.InferenceDuration.Observe(time.Since(inferStart).Seconds())

	l2 := domain.NewDataset()
	l2.Dims["time"] = rows
	for _, name := range t.cfg.Product.KeptVariables {
		v := l1.Var(name)
		if v == nil {
			return nil, fmt.Errorf("kept variable %q missing from level-1 dataset", name)
		}
		cv := &domain.Variable{
			Dims:    slices.Clone(v.Dims),
			Values:  slices.Clone(v.Values),
			Strings: slices.Clone(v.Strings),
			DType:   v.DType,
			Attrs:   make(map[string]any, len(v.Attrs)),
		}
		for k, a := range v.Attrs {
			cv.Attrs[k] = a
		}
		for _, d := range v.Dims {
			if _, ok := l2.Dims[d]; !ok {
				l2.Dims[d] = l1.Dims[d]
			}
		}
		if err := l2.AddVar(name, cv); err != nil {
			return nil, err
		}
	}
	for _, name := range t.cfg.Model.Outputs() {
		if err := l2.AddVar(name, &domain.Variable{
			Dims:   []string{"time"},
			Values: predictions[name],
			DType:  "float32",
		}); err != nil {
			return nil, err
		}
	}
	for k, a := range l1.Attrs {
		l2.Attrs[k] = a
	}

	source := domain.ApplyHindcastCorrection(ctx, l2, t.cfg.Hindcast, t.cfg.HindcastWeight, t.logger)
	l2.Attrs["swh_hindcast_source"] = source

	filters := make(map[string]domain.RangeFilter, len(t.cfg.Product.RangeFilters))
	for name, r := range t.cfg.Product.RangeFilters {
		filters[name] = domain.RangeFilter{Min: r.Min, Max: r.Max}
	}
	if err := domain.ApplyRangeFilters(l1, l2, filters); err != nil {
		return nil, err
	}

	if qc := t.cfg.Product.QualityVariables; qc != nil {
		vars := make(map[string]domain.QualityVariable, len(qc.Vars))
		for name, qv := range qc.Vars {
			vars[name] = domain.QualityVariable{
				Input:      qv.Input,
				Thresholds: [2]float64{qv.Thresholds[0], qv.Thresholds[1]},
				Attrs:      qv.Attributes,
			}
		}
		if err := domain.AddQualityFlags(l2, vars, qc.DropConfidence); err != nil {
			return nil, err
		}
	}

	return l2, nil
}

// buildFeatures assembles the row-major design matrix from the model's named
// inputs. Multi-column inputs (the CWAVE block) must be stored with time as
// the leading dimension so each acquisition's columns are contiguous.
func buildFeatures(ds *domain.Dataset, inputs []model.Input, rows int) ([]float64, error) {
	total := 0
	for _, in := range inputs {
		total += in.Width
	}
	features := make([]float64, rows*total)

	offset := 0
	for _, in := range inputs {
		v := ds.Var(in.Name)
		if v == nil {
			return nil, fmt.Errorf("model input %q missing from level-1 dataset", in.Name)
		}
		if len(v.Dims) == 0 || v.Dims[0] != "time" {
			return nil, fmt.Errorf("model input %q must have leading time dimension, has %v", in.Name, v.Dims)
		}
		if len(v.Values) != rows*in.Width {
			return nil, fmt.Errorf("model input %q has %d values, want %d", in.Name, len(v.Values), rows*in.Width)
		}
		for i := 0; i < rows; i++ {
			copy(features[i*total+offset:i*total+offset+in.Width], v.Values[i*in.Width:(i+1)*in.Width])
		}
		offset += in.Width
	}
	return features, nil
}
