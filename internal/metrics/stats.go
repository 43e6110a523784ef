// internal/metrics/stats.go
package metrics

import (
	"math"
	"sort"
)

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

func distributionStats(values []float64) DistributionStats {
	if len(values) == 0 {
		return DistributionStats{}
	}
	var rs RunningStat
	for _, v := range values {
		updateRunningStat(&rs, v)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return DistributionStats{
		Count:  int(rs.Count),
		Mean:   rs.Mean,
		StdDev: rs.StdDev(),
		Min:    rs.Min,
		Max:    rs.Max,
		P50:    percentile(sorted, 50),
		P90:    percentile(sorted, 90),
	}
}

// percentile interpolates linearly between the closest ranks of an already sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower] + weight*(sorted[upper]-sorted[lower])
}
