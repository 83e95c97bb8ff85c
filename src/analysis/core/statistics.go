package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd returns the mean and population standard deviation of data,
// accumulated in one pass so prices far from zero keep their precision.
func CalculateMeanStd(data []float64) (mean, std float64) {
	var m2 float64
	for i, v := range data {
		d := v - mean
		mean += d / float64(i+1)
		m2 += d * (v - mean)
	}
	if len(data) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(data)))
}

// -----------------------------------------------------------------------------

// CalculateZScore places value within a distribution; a flat one scores 0.
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}
