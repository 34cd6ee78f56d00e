package main

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ClearStats summarizes the recorded clear times of one variant
type ClearStats struct {
	Variant string  `json:"variant"`
	Clears  int     `json:"clears"`
	Best    float64 `json:"best"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"stddev"`
}

// SummarizeClears computes per-variant statistics, sorted by variant name
func SummarizeClears(times map[string][]float64) []ClearStats {
	out := make([]ClearStats, 0, len(times))
	for variant, secs := range times {
		if len(secs) == 0 {
			continue
		}
		sorted := append([]float64(nil), secs...)
		sort.Float64s(sorted)

		s := ClearStats{
			Variant: variant,
			Clears:  len(sorted),
			Best:    round3(floats.Min(sorted)),
			Mean:    round3(stat.Mean(sorted, nil)),
			Median:  round3(stat.Quantile(0.5, stat.Empirical, sorted, nil)),
		}
		if len(sorted) > 1 {
			s.StdDev = round3(stat.StdDev(sorted, nil))
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variant < out[j].Variant })
	return out
}
