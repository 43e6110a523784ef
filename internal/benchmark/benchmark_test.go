package benchmark

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/mwiater/nidsbench/internal/dataset"
	"github.com/mwiater/nidsbench/internal/inference"
)

const flowsCSV = `Flow Duration,Label
10,BENIGN
20,DDoS
30,BENIGN
40,PortScan
`

type fakeService struct {
	mu       sync.Mutex
	runs     map[string]comparison.ModelRun
	errs     map[string]error
	uploads  map[string]string
	statuses map[string]inference.HealthStatus
}

func (f *fakeService) FetchRun(ctx context.Context, model appconfig.ModelEndpoint, filename string, csvData []byte) (comparison.ModelRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[model.Name] = string(csvData)
	if err := f.errs[model.Name]; err != nil {
		return comparison.ModelRun{}, err
	}
	return f.runs[model.Name], nil
}

func (f *fakeService) Health(ctx context.Context, path string) inference.HealthStatus {
	if s, ok := f.statuses[path]; ok {
		return s
	}
	return inference.HealthStatus{Target: path, Status: "healthy", Healthy: true}
}

func fixedClock(t *testing.T) {
	t.Helper()
	prevID, prevNow := newID, now
	newID = func() string { return "0123456789abcdef" }
	now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { newID, now = prevID, prevNow })
}

func run(model string, verdicts ...bool) comparison.ModelRun {
	r := comparison.ModelRun{Model: model, ProcessingTime: time.Duration(len(verdicts)) * time.Millisecond}
	for i, mal := range verdicts {
		threat := "Normal"
		if mal {
			threat = "DDoS"
		}
		r.Results = append(r.Results, comparison.ClassificationResult{SampleID: i, IsMalicious: mal, ThreatType: threat, Confidence: 0.9})
	}
	return r
}

func loadFlows(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(flowsCSV), "flows.csv")
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	return ds
}

func testConfig() *appconfig.Config {
	cfg := appconfig.Default()
	return &cfg
}

func TestRunnerRun(t *testing.T) {
	fixedClock(t)
	svc := &fakeService{runs: map[string]comparison.ModelRun{
		"xgboost": run("xgboost", false, true, false, true),
		"mlp":     run("mlp", false, true, true, true),
	}}

	rec, err := NewRunner(testConfig(), svc).Run(context.Background(), loadFlows(t), Options{SampleSize: 10, Seed: 42})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rec.ID != "0123456789abcdef" || rec.File == nil || rec.File.AnalyzedRows != 4 || rec.File.Filename != "flows.csv" {
		t.Fatalf("unexpected record metadata: %+v", rec)
	}
	if rec.Report.Agreements != 3 || rec.Report.DisagreementsCount != 1 {
		t.Fatalf("unexpected report counts: %+v", rec.Report)
	}
	if !rec.Report.Labeled {
		t.Fatal("expected dataset labels to be attached")
	}
	if acc := rec.Report.AccuracyA; acc == nil || *acc != 100 {
		t.Fatalf("unexpected accuracy A %v", acc)
	}
	if acc := rec.Report.AccuracyB; acc == nil || *acc != 75 {
		t.Fatalf("unexpected accuracy B %v", acc)
	}
	if rec.BetterModel != "xgboost" {
		t.Fatalf("expected xgboost to be better, got %q", rec.BetterModel)
	}
	if svc.uploads["xgboost"] != svc.uploads["mlp"] || !strings.Contains(svc.uploads["mlp"], "Flow Duration,Label") {
		t.Fatalf("both models must receive the same CSV sample: %q", svc.uploads)
	}
}

func TestRunnerRunFetchError(t *testing.T) {
	boom := errors.New("service down")
	svc := &fakeService{
		runs: map[string]comparison.ModelRun{"xgboost": run("xgboost", true)},
		errs: map[string]error{"mlp": boom},
	}
	if _, err := NewRunner(testConfig(), svc).Run(context.Background(), loadFlows(t), Options{SampleSize: 4}); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestRunnerRunShapeMismatch(t *testing.T) {
	svc := &fakeService{runs: map[string]comparison.ModelRun{
		"xgboost": run("xgboost", true, true, false),
		"mlp":     run("mlp", true, true),
	}}
	if _, err := NewRunner(testConfig(), svc).Run(context.Background(), loadFlows(t), Options{SampleSize: 4}); !errors.Is(err, comparison.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestRunnerRunSampleSizeBounds(t *testing.T) {
	runner := NewRunner(testConfig(), &fakeService{})
	for _, opts := range []Options{
		{SampleSize: 0},
		{SampleSize: appconfig.MaxSampleSize + 1},
		{Balanced: true},
		{Balanced: true, Benign: 600, Malicious: 600},
	} {
		if _, err := runner.Run(context.Background(), loadFlows(t), opts); !errors.Is(err, ErrSampleSize) {
			t.Fatalf("expected ErrSampleSize for %+v, got %v", opts, err)
		}
	}
}

func TestRunnerRunBalanced(t *testing.T) {
	fixedClock(t)
	svc := &fakeService{runs: map[string]comparison.ModelRun{
		"xgboost": run("xgboost", false, true),
		"mlp":     run("mlp", false, true),
	}}
	rec, err := NewRunner(testConfig(), svc).Run(context.Background(), loadFlows(t), Options{Balanced: true, Benign: 1, Malicious: 1, Seed: 3})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rec.File.AnalyzedRows != 2 || rec.File.TotalRows != 4 {
		t.Fatalf("unexpected file info %+v", rec.File)
	}
	if rec.Report.AgreementRate != 100 {
		t.Fatalf("expected full agreement, got %v", rec.Report.AgreementRate)
	}
}

func TestRunnerRunPerClass(t *testing.T) {
	fixedClock(t)
	svc := &fakeService{runs: map[string]comparison.ModelRun{
		"xgboost": run("xgboost", false, true, true),
		"mlp":     run("mlp", false, true, false),
	}}
	rec, err := NewRunner(testConfig(), svc).Run(context.Background(), loadFlows(t), Options{PerClass: 1, Seed: 3})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rec.File.AnalyzedRows != 3 {
		t.Fatalf("expected one row per label, got %+v", rec.File)
	}
	uploaded := svc.uploads["xgboost"]
	for _, label := range []string{"BENIGN", "DDoS", "PortScan"} {
		if strings.Count(uploaded, ","+label) != 1 {
			t.Fatalf("expected exactly one %s row in the upload:\n%s", label, uploaded)
		}
	}
}

func TestRunnerRunPerClassLimits(t *testing.T) {
	runner := NewRunner(testConfig(), &fakeService{})
	if _, err := runner.Run(context.Background(), loadFlows(t), Options{PerClass: appconfig.MaxSampleSize + 1}); !errors.Is(err, ErrSampleSize) {
		t.Fatalf("expected ErrSampleSize, got %v", err)
	}
	if _, err := runner.Run(context.Background(), loadFlows(t), Options{PerClass: 1, Balanced: true, Benign: 1, Malicious: 1}); err == nil {
		t.Fatal("expected an error when combining balanced and per-class sampling")
	}
}

func TestAttachLabelsKeepsExisting(t *testing.T) {
	own := "PortScan"
	r := run("m", true, false)
	r.Results[0].OriginalLabel = &own

	got := attachLabels(r, []string{"DDoS", "BENIGN"})
	if *got.Results[0].OriginalLabel != "PortScan" || *got.Results[1].OriginalLabel != "BENIGN" {
		t.Fatalf("unexpected labels: %v %v", *got.Results[0].OriginalLabel, *got.Results[1].OriginalLabel)
	}
	if r.Results[1].OriginalLabel != nil {
		t.Fatal("attachLabels modified its input")
	}
}

func TestRunnerHealth(t *testing.T) {
	cfg := testConfig()
	svc := &fakeService{}
	if h := NewRunner(cfg, svc).Health(context.Background()); h.Status != "healthy" || len(h.Models) != 2 {
		t.Fatalf("expected healthy report, got %+v", h)
	}

	svc.statuses = map[string]inference.HealthStatus{
		cfg.Models[1].HealthPath: {Target: cfg.Models[1].HealthPath, Status: "unreachable"},
	}
	h := NewRunner(cfg, svc).Health(context.Background())
	if h.Status != "degraded" || h.Models["mlp"].Healthy {
		t.Fatalf("expected degraded report, got %+v", h)
	}
}
