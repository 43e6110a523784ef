// internal/benchmark/benchmark.go
// Package benchmark runs both classifiers over one dataset sample and turns their
// predictions into a comparison record.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/mwiater/nidsbench/internal/dataset"
	"github.com/mwiater/nidsbench/internal/inference"
	"github.com/mwiater/nidsbench/internal/logging"
	"github.com/mwiater/nidsbench/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrSampleSize marks a requested sample size outside 1..appconfig.MaxSampleSize.
var ErrSampleSize = fmt.Errorf("sample size must be between 1 and %d", appconfig.MaxSampleSize)

// Service is the part of the inference client a benchmark needs.
type Service interface {
	FetchRun(ctx context.Context, model appconfig.ModelEndpoint, filename string, csvData []byte) (comparison.ModelRun, error)
	Health(ctx context.Context, path string) inference.HealthStatus
}

var (
	newID = uuid.NewString
	now   = func() time.Time { return time.Now().UTC() }
)

// Options selects the rows a benchmark sends to the models.
type Options struct {
	SampleSize int
	Seed       int64
	// Balanced draws Benign benign rows and Malicious malicious rows instead of SampleSize.
	Balanced  bool
	Benign    int
	Malicious int
	// PerClass, when positive, draws up to PerClass rows of every label instead of SampleSize.
	PerClass int
}

// Record is one persisted comparison of the two models.
type Record struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	File        *dataset.FileInfo    `json:"file,omitempty"`
	Report      comparison.Report    `json:"report"`
	SummaryA    metrics.ModelSummary `json:"summaryA"`
	SummaryB    metrics.ModelSummary `json:"summaryB"`
	Throughput  metrics.Throughput   `json:"throughput"`
	BetterModel string               `json:"betterModel,omitempty"`
}

// HealthReport combines the health of the service and of each model.
type HealthReport struct {
	Status  string                            `json:"status"`
	Service inference.HealthStatus            `json:"service"`
	Models  map[string]inference.HealthStatus `json:"models"`
}

// Runner executes benchmarks against the two configured models.
type Runner struct {
	cfg     *appconfig.Config
	service Service
}

// NewRunner returns a Runner for cfg's models. cfg must pass ValidateService.
func NewRunner(cfg *appconfig.Config, service Service) *Runner {
	return &Runner{cfg: cfg, service: service}
}

// Run samples ds, scores the sample with both models concurrently and compares the results.
// A failure of either model cancels the other request.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Record, error) {
	if len(r.cfg.Models) != 2 {
		return nil, fmt.Errorf("benchmark requires exactly two models, got %d", len(r.cfg.Models))
	}

	sample, err := selectRows(ds, opts)
	if err != nil {
		return nil, err
	}
	csvData, err := sample.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode sample: %w", err)
	}

	modelA, modelB := r.cfg.Models[0], r.cfg.Models[1]
	logging.LogEvent("Running benchmark on %d of %d rows from %s with models: %s, %s",
		sample.Len(), ds.Len(), ds.Name, modelA.Name, modelB.Name)

	var runA, runB comparison.ModelRun
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		runA, err = r.service.FetchRun(gctx, modelA, ds.Name, csvData)
		return err
	})
	g.Go(func() error {
		var err error
		runB, err = r.service.FetchRun(gctx, modelB, ds.Name, csvData)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if labels, err := sample.Labels(); err == nil {
		runA = attachLabels(runA, labels)
		runB = attachLabels(runB, labels)
	}

	info := sample.Info(ds.Len())
	record, err := Build(runA, runB, &info)
	if err != nil {
		return nil, err
	}
	logging.LogEvent("Benchmark %s complete: agreement %.2f%% over %d samples (%s %s, %s %s)",
		record.ID, record.Report.AgreementRate, record.Report.Count,
		modelA.Name, runA.ProcessingTime, modelB.Name, runB.ProcessingTime)
	return record, nil
}

// Health asks the service and both models for their status. Overall status is healthy
// only when every check is.
func (r *Runner) Health(ctx context.Context) HealthReport {
	report := HealthReport{Models: make(map[string]inference.HealthStatus, len(r.cfg.Models))}

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		status := r.service.Health(ctx, r.cfg.Service.HealthPath)
		mu.Lock()
		report.Service = status
		mu.Unlock()
	}()
	for _, model := range r.cfg.Models {
		path := model.HealthPath
		if strings.TrimSpace(path) == "" {
			path = r.cfg.Service.HealthPath
		}
		wg.Add(1)
		go func(name, path string) {
			defer wg.Done()
			status := r.service.Health(ctx, path)
			mu.Lock()
			report.Models[name] = status
			mu.Unlock()
		}(model.Name, path)
	}
	wg.Wait()

	report.Status = "healthy"
	if !report.Service.Healthy {
		report.Status = "degraded"
	}
	for _, status := range report.Models {
		if !status.Healthy {
			report.Status = "degraded"
		}
	}
	return report
}

// Build compares two runs and summarises each model. file is nil for offline comparisons.
func Build(runA, runB comparison.ModelRun, file *dataset.FileInfo) (*Record, error) {
	report, err := comparison.Compare(runA, runB)
	if err != nil {
		return nil, err
	}
	runA, runB = shareLabels(runA, runB)
	summaryA, errA := metrics.Summarize(runA)
	summaryB, errB := metrics.Summarize(runB)
	if err := errors.Join(errA, errB); err != nil {
		return nil, err
	}
	return &Record{
		ID:          newID(),
		Timestamp:   now(),
		File:        file,
		Report:      report,
		SummaryA:    summaryA,
		SummaryB:    summaryB,
		Throughput:  metrics.CompareThroughput(summaryA, summaryB),
		BetterModel: metrics.BetterModel(summaryA, summaryB),
	}, nil
}

func selectRows(ds *dataset.Dataset, opts Options) (*dataset.Dataset, error) {
	if opts.Balanced && opts.PerClass > 0 {
		return nil, errors.New("balanced and per-class sampling cannot be combined")
	}
	if opts.PerClass > 0 {
		if opts.PerClass > appconfig.MaxSampleSize {
			return nil, fmt.Errorf("%w: per-class sample of %d rows", ErrSampleSize, opts.PerClass)
		}
		sample, err := ds.PerClass(opts.PerClass, opts.Seed)
		if err != nil {
			return nil, err
		}
		if sample.Len() > appconfig.MaxSampleSize {
			return nil, fmt.Errorf("%w: per-class sample of %d rows per label selected %d rows", ErrSampleSize, opts.PerClass, sample.Len())
		}
		return sample, nil
	}
	if opts.Balanced {
		if opts.Benign < 0 || opts.Malicious < 0 || opts.Benign+opts.Malicious < 1 || opts.Benign+opts.Malicious > appconfig.MaxSampleSize {
			return nil, fmt.Errorf("%w: balanced sample of %d benign and %d malicious rows", ErrSampleSize, opts.Benign, opts.Malicious)
		}
		return ds.Balanced(opts.Benign, opts.Malicious, opts.Seed)
	}
	if opts.SampleSize < 1 || opts.SampleSize > appconfig.MaxSampleSize {
		return nil, fmt.Errorf("%w: got %d", ErrSampleSize, opts.SampleSize)
	}
	return ds.Sample(opts.SampleSize, opts.Seed), nil
}

// shareLabels gives each result the label its counterpart carries, so that both summaries
// score against the same ground truth. The runs must already have passed Compare.
func shareLabels(a, b comparison.ModelRun) (comparison.ModelRun, comparison.ModelRun) {
	ra, rb := slices.Clone(a.Results), slices.Clone(b.Results)
	for i := range ra {
		switch {
		case ra[i].OriginalLabel == nil:
			ra[i].OriginalLabel = rb[i].OriginalLabel
		case rb[i].OriginalLabel == nil:
			rb[i].OriginalLabel = ra[i].OriginalLabel
		}
	}
	a.Results, b.Results = ra, rb
	return a, b
}

// attachLabels fills in dataset labels the service did not echo back. Sample IDs are
// row positions within the uploaded sample.
func attachLabels(run comparison.ModelRun, labels []string) comparison.ModelRun {
	results := make([]comparison.ClassificationResult, len(run.Results))
	copy(results, run.Results)
	for i := range results {
		id := results[i].SampleID
		if results[i].OriginalLabel == nil && id >= 0 && id < len(labels) {
			l := labels[id]
			results[i].OriginalLabel = &l
		}
	}
	run.Results = results
	return run
}
