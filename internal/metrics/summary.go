// internal/metrics/summary.go

// Package metrics computes per-model statistics for a single classifier run: verdict counts,
// threat-type distribution, confidence distribution, throughput and label accuracy.
package metrics

import (
	"sort"

	"github.com/mwiater/nidsbench/internal/comparison"
)

// Summarize builds the per-model summary of one run.
// Empty and malformed runs are rejected with the comparison package's errors.
func Summarize(run comparison.ModelRun) (ModelSummary, error) {
	if err := comparison.Validate(run); err != nil {
		return ModelSummary{}, err
	}
	meanConfidence, err := comparison.AggregateConfidence(run.Results)
	if err != nil {
		return ModelSummary{}, err
	}
	avg, err := run.AvgTimePerSample()
	if err != nil {
		return ModelSummary{}, err
	}

	n := len(run.Results)
	summary := ModelSummary{
		Model:            run.Model,
		Samples:          n,
		ProcessingTime:   run.ProcessingTime,
		AvgTimePerSample: avg,
	}

	counts := make(map[string]int)
	confidences := make([]float64, 0, n)
	labeled, correct := 0, 0
	for _, r := range run.Results {
		if comparison.ClassifyVerdict(r) == comparison.Malicious {
			summary.MaliciousVerdicts++
		} else {
			summary.BenignVerdicts++
		}
		counts[r.ThreatType]++
		confidences = append(confidences, r.Confidence)
		if ok, has := comparison.Correct(r); has {
			labeled++
			if ok {
				correct++
			}
		}
	}

	summary.DetectionRate = 100 * float64(summary.MaliciousVerdicts) / float64(n)
	summary.ThreatCounts = sortedThreatCounts(counts, n)
	summary.Confidence = distributionStats(confidences)
	summary.Confidence.Mean = meanConfidence
	if secs := run.ProcessingTime.Seconds(); secs > 0 {
		summary.SamplesPerSecond = float64(n) / secs
	}
	if labeled == n {
		acc := 100 * float64(correct) / float64(n)
		summary.Accuracy = &acc
	}
	return summary, nil
}

// CompareThroughput reports which model needed less time per sample and by what factor.
// Faster is empty on a tie or when either model reported no processing time.
func CompareThroughput(a, b ModelSummary) Throughput {
	if a.AvgTimePerSample <= 0 || b.AvgTimePerSample <= 0 || a.AvgTimePerSample == b.AvgTimePerSample {
		return Throughput{Speedup: 1}
	}
	fast, slow := a, b
	if b.AvgTimePerSample < a.AvgTimePerSample {
		fast, slow = b, a
	}
	return Throughput{
		Faster:  fast.Model,
		Speedup: float64(slow.AvgTimePerSample) / float64(fast.AvgTimePerSample),
	}
}

// BetterModel names the more accurate model. It returns "" when either run is unlabeled
// or both score the same.
func BetterModel(a, b ModelSummary) string {
	if a.Accuracy == nil || b.Accuracy == nil || *a.Accuracy == *b.Accuracy {
		return ""
	}
	if *a.Accuracy > *b.Accuracy {
		return a.Model
	}
	return b.Model
}

func sortedThreatCounts(counts map[string]int, total int) []ThreatCount {
	out := make([]ThreatCount, 0, len(counts))
	for threat, c := range counts {
		out = append(out, ThreatCount{ThreatType: threat, Count: c, Share: 100 * float64(c) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ThreatType < out[j].ThreatType
	})
	return out
}
