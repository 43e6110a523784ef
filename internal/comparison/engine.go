// internal/comparison/engine.go

// Package comparison derives agreement statistics from two classifiers scored on the same
// dataset sample. Every function in the package is pure: inputs are read, never modified,
// and each call allocates its own output.
package comparison

import (
	"errors"
	"fmt"
	"math"
)

// Compare walks both runs once, index by index, and returns the comparison report.
// The runs must be non-empty, of equal length, and hold the same sample ID at every index.
// Any violation fails the call; no partial report is returned.
func Compare(a, b ModelRun) (Report, error) {
	count := a.Count()
	if count == 0 {
		return Report{}, emptyRunError(a, "A")
	}
	if b.Count() == 0 {
		return Report{}, emptyRunError(b, "B")
	}
	if count != b.Count() {
		return Report{}, &ShapeMismatchError{LenA: count, LenB: b.Count(), Index: -1}
	}
	if err := errors.Join(Validate(a), Validate(b)); err != nil {
		return Report{}, err
	}

	report := Report{
		ModelA:        a.Model,
		ModelB:        b.Model,
		Count:         count,
		ThreatCountsA: make(map[string]int),
		ThreatCountsB: make(map[string]int),
		Disagreements: make([]Disagreement, 0),
		Labeled:       true,
	}

	var confidenceA, confidenceB float64
	var correctA, correctB int
	for i := range a.Results {
		ra, rb := a.Results[i], b.Results[i]
		if ra.SampleID != rb.SampleID {
			return Report{}, &ShapeMismatchError{
				LenA: count, LenB: count, Index: i,
				SampleIDA: ra.SampleID, SampleIDB: rb.SampleID,
			}
		}

		label := sharedLabel(ra, rb)
		ra.OriginalLabel, rb.OriginalLabel = label, label

		if ra.IsMalicious {
			report.MaliciousCountA++
		}
		if rb.IsMalicious {
			report.MaliciousCountB++
		}
		report.ThreatCountsA[ra.ThreatType]++
		report.ThreatCountsB[rb.ThreatType]++
		confidenceA += ra.Confidence
		confidenceB += rb.Confidence

		okA, labeled := Correct(ra)
		okB, _ := Correct(rb)
		if !labeled {
			report.Labeled = false
		} else {
			if okA {
				correctA++
			}
			if okB {
				correctB++
			}
		}

		if ra.IsMalicious == rb.IsMalicious {
			report.Agreements++
			continue
		}
		report.DisagreementsCount++
		d := Disagreement{
			SampleID:         ra.SampleID,
			IsMaliciousA:     ra.IsMalicious,
			IsMaliciousB:     rb.IsMalicious,
			ThreatTypeA:      ra.ThreatType,
			ThreatTypeB:      rb.ThreatType,
			ConfidenceA:      ra.Confidence,
			ConfidenceB:      rb.Confidence,
			PredictionLabelA: ra.PredictionLabel,
			PredictionLabelB: rb.PredictionLabel,
		}
		if labeled {
			l := *label
			d.OriginalLabel = &l
			d.CorrectA = boolPtr(okA)
			d.CorrectB = boolPtr(okB)
		}
		report.Disagreements = append(report.Disagreements, d)
	}

	n := float64(count)
	report.AgreementRate = percentage(report.Agreements, count)
	report.DisagreementRate = 100 - report.AgreementRate
	report.MeanConfidenceA = confidenceA / n
	report.MeanConfidenceB = confidenceB / n
	report.AvgTimePerSampleA, _ = a.AvgTimePerSample()
	report.AvgTimePerSampleB, _ = b.AvgTimePerSample()
	if report.Labeled {
		accA, accB := percentage(correctA, count), percentage(correctB, count)
		report.AccuracyA, report.AccuracyB = &accA, &accB
	}
	return report, nil
}

// AggregateConfidence returns the mean confidence of the results.
func AggregateConfidence(results []ClassificationResult) (float64, error) {
	if len(results) == 0 {
		return 0, fmt.Errorf("%w: no results to average", ErrEmptyInput)
	}
	var sum float64
	for i, r := range results {
		if !validConfidence(r.Confidence) {
			return 0, &MalformedResultError{Index: i, Field: "confidence", Reason: fmt.Sprintf("%v is outside [0, 1]", r.Confidence)}
		}
		sum += r.Confidence
	}
	return sum / float64(len(results)), nil
}

// Validate checks every record of a run and returns all problems joined together.
func Validate(run ModelRun) error {
	var errs []error
	if run.ProcessingTime < 0 {
		errs = append(errs, &MalformedResultError{Model: run.Model, Index: -1, Field: "processingTime", Reason: "is negative"})
	}
	seen := make(map[int]int, len(run.Results))
	for i, r := range run.Results {
		if r.SampleID < 0 {
			errs = append(errs, &MalformedResultError{Model: run.Model, Index: i, Field: "sampleId", Reason: fmt.Sprintf("%d is negative", r.SampleID)})
		} else if first, dup := seen[r.SampleID]; dup {
			errs = append(errs, &MalformedResultError{Model: run.Model, Index: i, Field: "sampleId", Reason: fmt.Sprintf("%d already used by result %d", r.SampleID, first)})
		} else {
			seen[r.SampleID] = i
		}
		if r.ThreatType == "" {
			errs = append(errs, &MalformedResultError{Model: run.Model, Index: i, Field: "threatType", Reason: "is missing"})
		}
		if !validConfidence(r.Confidence) {
			errs = append(errs, &MalformedResultError{Model: run.Model, Index: i, Field: "confidence", Reason: fmt.Sprintf("%v is outside [0, 1]", r.Confidence)})
		}
	}
	return errors.Join(errs...)
}

// sharedLabel prefers run A's label; the dataset label is the same sample either way.
func sharedLabel(a, b ClassificationResult) *string {
	if a.HasLabel() {
		return a.OriginalLabel
	}
	return b.OriginalLabel
}

func validConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 1
}

func percentage(part, total int) float64 {
	return 100 * float64(part) / float64(total)
}

func boolPtr(b bool) *bool { return &b }
