package metrics

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mwiater/nidsbench/internal/comparison"
)

func strPtr(s string) *string { return &s }

func sampleRun() comparison.ModelRun {
	return comparison.ModelRun{
		Model: "xgboost",
		Results: []comparison.ClassificationResult{
			{SampleID: 0, IsMalicious: true, ThreatType: "DDoS Attack", Confidence: 0.9, OriginalLabel: strPtr("DDoS")},
			{SampleID: 1, IsMalicious: false, ThreatType: "Normal", Confidence: 0.7, OriginalLabel: strPtr("BENIGN")},
			{SampleID: 2, IsMalicious: true, ThreatType: "DDoS Attack", Confidence: 0.5, OriginalLabel: strPtr("BENIGN")},
			{SampleID: 3, IsMalicious: true, ThreatType: "Port Scan", Confidence: 0.3, OriginalLabel: strPtr("PortScan")},
		},
		ProcessingTime: 2 * time.Second,
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(sampleRun())
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.Samples != 4 || s.MaliciousVerdicts != 3 || s.BenignVerdicts != 1 {
		t.Fatalf("unexpected verdict counts: %+v", s)
	}
	if s.DetectionRate != 75 {
		t.Fatalf("expected detection rate 75, got %v", s.DetectionRate)
	}
	if s.AvgTimePerSample != 500*time.Millisecond || s.SamplesPerSecond != 2 {
		t.Fatalf("unexpected throughput: avg=%s sps=%v", s.AvgTimePerSample, s.SamplesPerSecond)
	}
	if len(s.ThreatCounts) != 3 || s.ThreatCounts[0].ThreatType != "DDoS Attack" || s.ThreatCounts[0].Count != 2 {
		t.Fatalf("unexpected threat counts: %+v", s.ThreatCounts)
	}
	if s.ThreatCounts[1].ThreatType != "Normal" {
		t.Fatalf("expected ties broken by name, got %+v", s.ThreatCounts)
	}
	if math.Abs(s.Confidence.Mean-0.6) > 1e-9 || s.Confidence.Min != 0.3 || s.Confidence.Max != 0.9 {
		t.Fatalf("unexpected confidence stats: %+v", s.Confidence)
	}
	if math.Abs(s.Confidence.P50-0.6) > 1e-9 {
		t.Fatalf("expected median 0.6, got %v", s.Confidence.P50)
	}
	if s.Accuracy == nil || *s.Accuracy != 75 {
		t.Fatalf("expected accuracy 75, got %v", s.Accuracy)
	}
}

func TestSummarizeUnlabeledHasNoAccuracy(t *testing.T) {
	run := sampleRun()
	run.Results[2].OriginalLabel = nil
	s, err := Summarize(run)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.Accuracy != nil {
		t.Fatalf("expected nil accuracy, got %v", *s.Accuracy)
	}
}

func TestSummarizeRejectsEmptyRun(t *testing.T) {
	if _, err := Summarize(comparison.ModelRun{Model: "mlp"}); !errors.Is(err, comparison.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestCompareThroughput(t *testing.T) {
	a := ModelSummary{Model: "xgboost", AvgTimePerSample: 2 * time.Millisecond}
	b := ModelSummary{Model: "mlp", AvgTimePerSample: 8 * time.Millisecond}
	got := CompareThroughput(a, b)
	if got.Faster != "xgboost" || got.Speedup != 4 {
		t.Fatalf("unexpected throughput: %+v", got)
	}
	if tie := CompareThroughput(a, a); tie.Faster != "" || tie.Speedup != 1 {
		t.Fatalf("unexpected tie result: %+v", tie)
	}
}

func TestBetterModel(t *testing.T) {
	hi, lo := 90.0, 80.0
	a := ModelSummary{Model: "xgboost", Accuracy: &lo}
	b := ModelSummary{Model: "mlp", Accuracy: &hi}
	if got := BetterModel(a, b); got != "mlp" {
		t.Fatalf("expected mlp, got %q", got)
	}
	if got := BetterModel(a, ModelSummary{Model: "x"}); got != "" {
		t.Fatalf("expected empty for unlabeled run, got %q", got)
	}
}

func TestUpdateRunningStat(t *testing.T) {
	var rs RunningStat
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		updateRunningStat(&rs, v)
	}
	if math.Abs(rs.Mean-5) > 1e-9 || rs.Min != 2 || rs.Max != 9 {
		t.Fatalf("unexpected running stat: %+v", rs)
	}
	if math.Abs(rs.StdDev()-2.138089935299395) > 1e-9 {
		t.Fatalf("unexpected stddev: %v", rs.StdDev())
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := percentile(sorted, 50); got != 2.5 {
		t.Fatalf("p50 = %v, want 2.5", got)
	}
	if got := percentile(sorted, 100); got != 4 {
		t.Fatalf("p100 = %v, want 4", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty percentile = %v, want 0", got)
	}
}

func TestSummaryJSONUsesSeconds(t *testing.T) {
	s, err := Summarize(sampleRun())
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if fields["processingTime"] != 2.0 || fields["avgTimePerSample"] != 0.5 {
		t.Fatalf("expected seconds, got processingTime=%v avgTimePerSample=%v", fields["processingTime"], fields["avgTimePerSample"])
	}

	var back ModelSummary
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if back.ProcessingTime != 2*time.Second || back.AvgTimePerSample != 500*time.Millisecond || back.Model != "xgboost" {
		t.Fatalf("unexpected summary after round trip: %+v", back)
	}
}

func TestSummarizeCountsVerdictsNotFlags(t *testing.T) {
	run := comparison.ModelRun{Model: "mlp", ProcessingTime: time.Second, Results: []comparison.ClassificationResult{
		{SampleID: 0, IsMalicious: true, ThreatType: "Normal", Confidence: 0.5},
	}}
	s, err := Summarize(run)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.MaliciousVerdicts != 0 || s.BenignVerdicts != 1 {
		t.Fatalf("expected a Normal threat type to be a benign verdict, got %d/%d", s.MaliciousVerdicts, s.BenignVerdicts)
	}
}
