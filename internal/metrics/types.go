// internal/metrics/types.go
package metrics

import (
	"encoding/json"
	"math"
	"time"

	"github.com/mwiater/nidsbench/internal/comparison"
)

// ModelSummary describes one model run on its own, independent of the other model.
// Times are float seconds in JSON.
type ModelSummary struct {
	Model   string `json:"model"`
	Samples int    `json:"samples"`
	// MaliciousVerdicts counts ClassifyVerdict, so a result flagged malicious with threat
	// type Normal is benign here while comparison.Report.MaliciousCountA/B count its raw flag.
	MaliciousVerdicts int               `json:"maliciousVerdicts"`
	BenignVerdicts    int               `json:"benignVerdicts"`
	DetectionRate     float64           `json:"detectionRate"`
	ThreatCounts      []ThreatCount     `json:"threatCounts"`
	Confidence        DistributionStats `json:"confidence"`
	ProcessingTime    time.Duration     `json:"processingTime"`
	AvgTimePerSample  time.Duration     `json:"avgTimePerSample"`
	SamplesPerSecond  float64           `json:"samplesPerSecond"`
	// Accuracy is nil unless every sample carries a ground-truth label.
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type summaryAlias ModelSummary

type summaryJSON struct {
	summaryAlias
	ProcessingTime   float64 `json:"processingTime"`
	AvgTimePerSample float64 `json:"avgTimePerSample"`
}

func (s ModelSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		summaryAlias:     summaryAlias(s),
		ProcessingTime:   s.ProcessingTime.Seconds(),
		AvgTimePerSample: s.AvgTimePerSample.Seconds(),
	})
}

func (s *ModelSummary) UnmarshalJSON(data []byte) error {
	var w summaryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = ModelSummary(w.summaryAlias)
	s.ProcessingTime = comparison.DurationFromSeconds(w.ProcessingTime)
	s.AvgTimePerSample = comparison.DurationFromSeconds(w.AvgTimePerSample)
	return nil
}

// ThreatCount is the number of samples a model assigned to one threat type.
type ThreatCount struct {
	ThreatType string  `json:"threatType"`
	Count      int     `json:"count"`
	Share      float64 `json:"share"`
}

// Throughput compares how fast the two models scored the same sample.
type Throughput struct {
	Faster  string  `json:"faster"`
	Speedup float64 `json:"speedup"`
}

// DistributionStats summarises a set of values.
type DistributionStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64
	Mean  float64
	M2    float64 // Sum of squares of differences from the current mean
	Min   float64
	Max   float64
}

// StdDev returns the sample standard deviation, or 0 with fewer than two values.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}
