// internal/comparison/types.go
package comparison

import (
	"encoding/json"
	"math"
	"time"
)

// ClassificationResult is one model's prediction for one sample of the shared dataset.
type ClassificationResult struct {
	SampleID        int     `json:"sampleId"`
	IsMalicious     bool    `json:"isMalicious"`
	ThreatType      string  `json:"threatType"`
	Confidence      float64 `json:"confidence"`
	PredictionLabel string  `json:"predictionLabel,omitempty"`
	OriginalLabel   *string `json:"originalLabel,omitempty"`
}

// HasLabel reports whether the result carries a ground-truth label.
func (r ClassificationResult) HasLabel() bool {
	return r.OriginalLabel != nil
}

// ModelRun is one classifier's full set of predictions over one dataset sample.
type ModelRun struct {
	Model          string                 `json:"model"`
	Results        []ClassificationResult `json:"results"`
	ProcessingTime time.Duration          `json:"-"`
}

type modelRunJSON struct {
	Model   string                 `json:"model"`
	Results []ClassificationResult `json:"results"`
	// ProcessingTime is in seconds on the wire, as the inference service reports it.
	ProcessingTime float64 `json:"processingTime"`
}

func (r ModelRun) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelRunJSON{Model: r.Model, Results: r.Results, ProcessingTime: r.ProcessingTime.Seconds()})
}

func (r *ModelRun) UnmarshalJSON(data []byte) error {
	var w modelRunJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Model, r.Results = w.Model, w.Results
	r.ProcessingTime = DurationFromSeconds(w.ProcessingTime)
	return nil
}

// DurationFromSeconds converts float seconds, the unit of every time value in JSON output,
// to the nearest nanosecond.
func DurationFromSeconds(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// Count returns the number of scored samples.
func (r ModelRun) Count() int {
	return len(r.Results)
}

// AvgTimePerSample divides the run's wall-clock time by its sample count.
func (r ModelRun) AvgTimePerSample() (time.Duration, error) {
	if len(r.Results) == 0 {
		return 0, emptyRunError(r, "")
	}
	return r.ProcessingTime / time.Duration(len(r.Results)), nil
}

// Disagreement describes a sample on which the two models returned different binary verdicts.
type Disagreement struct {
	SampleID         int     `json:"sampleId"`
	IsMaliciousA     bool    `json:"isMaliciousA"`
	IsMaliciousB     bool    `json:"isMaliciousB"`
	ThreatTypeA      string  `json:"threatTypeA"`
	ThreatTypeB      string  `json:"threatTypeB"`
	ConfidenceA      float64 `json:"confidenceA"`
	ConfidenceB      float64 `json:"confidenceB"`
	PredictionLabelA string  `json:"predictionLabelA,omitempty"`
	PredictionLabelB string  `json:"predictionLabelB,omitempty"`
	OriginalLabel    *string `json:"originalLabel,omitempty"`
	// CorrectA and CorrectB are nil unless OriginalLabel is set.
	CorrectA *bool `json:"correctA,omitempty"`
	CorrectB *bool `json:"correctB,omitempty"`
}

// Report is the outcome of comparing two model runs over the same sample.
// Agreements + DisagreementsCount always equals Count. Average times are float seconds in JSON.
type Report struct {
	ModelA             string         `json:"modelA"`
	ModelB             string         `json:"modelB"`
	Count              int            `json:"count"`
	Agreements         int            `json:"agreements"`
	DisagreementsCount int            `json:"disagreementsCount"`
	AgreementRate      float64        `json:"agreementRate"`
	DisagreementRate   float64        `json:"disagreementRate"`
	MaliciousCountA    int            `json:"maliciousCountA"`
	MaliciousCountB    int            `json:"maliciousCountB"`
	ThreatCountsA      map[string]int `json:"threatCountsA"`
	ThreatCountsB      map[string]int `json:"threatCountsB"`
	MeanConfidenceA    float64        `json:"meanConfidenceA"`
	MeanConfidenceB    float64        `json:"meanConfidenceB"`
	AvgTimePerSampleA  time.Duration  `json:"avgTimePerSampleA"`
	AvgTimePerSampleB  time.Duration  `json:"avgTimePerSampleB"`
	Labeled            bool           `json:"labeled"`
	// AccuracyA and AccuracyB are nil unless Labeled.
	AccuracyA     *float64       `json:"accuracyA,omitempty"`
	AccuracyB     *float64       `json:"accuracyB,omitempty"`
	Disagreements []Disagreement `json:"disagreements"`
}

type reportAlias Report

type reportJSON struct {
	reportAlias
	AvgTimePerSampleA float64 `json:"avgTimePerSampleA"`
	AvgTimePerSampleB float64 `json:"avgTimePerSampleB"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(reportJSON{
		reportAlias:       reportAlias(r),
		AvgTimePerSampleA: r.AvgTimePerSampleA.Seconds(),
		AvgTimePerSampleB: r.AvgTimePerSampleB.Seconds(),
	})
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var w reportJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Report(w.reportAlias)
	r.AvgTimePerSampleA = DurationFromSeconds(w.AvgTimePerSampleA)
	r.AvgTimePerSampleB = DurationFromSeconds(w.AvgTimePerSampleB)
	return nil
}

// TopDisagreements returns at most n disagreements in sample order.
// A non-positive n returns all of them. The report is left untouched.
func (r Report) TopDisagreements(n int) []Disagreement {
	if n <= 0 || n > len(r.Disagreements) {
		n = len(r.Disagreements)
	}
	out := make([]Disagreement, n)
	copy(out, r.Disagreements[:n])
	return out
}
