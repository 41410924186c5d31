package analysis

import "math"

// Summary holds descriptive statistics of one measure over a set of
// records.
//
// Count is the number of records; Valid the number with a defined measure
// value. Statistics are computed over the valid values only and are zero
// when Valid is 0. StdDev is the population standard deviation. CV is
// StdDev/Mean*100 and nil when undefined (mean zero or no valid values).
type Summary struct {
	Count     int
	Valid     int
	Undefined int
	Sum       float64
	Mean      float64
	Min       float64
	Max       float64
	StdDev    float64
	CV        *float64
}

// Summarize computes a Summary over values, all of which are defined.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values), Valid: len(values)}
	if len(values) == 0 {
		return s
	}

	s.Min, s.Max = values[0], values[0]
	for _, x := range values {
		s.Sum += x
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	n := float64(len(values))
	s.Mean = s.Sum / n

	var sq float64
	for _, x := range values {
		d := x - s.Mean
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / n)
	s.CV = CoefficientOfVariation(s.StdDev, s.Mean)
	return s
}

// SummarizeView computes a Summary of m over a view.
func SummarizeView(v View, m Measure) Summary {
	values, undefined := v.Values(m)
	s := Summarize(values)
	s.Count += undefined
	s.Undefined = undefined
	return s
}

// CoefficientOfVariation returns stddev/mean*100, or nil when mean is zero.
func CoefficientOfVariation(stddev, mean float64) *float64 {
	if mean == 0 {
		return nil
	}
	cv := stddev / mean * 100
	return &cv
}

// Mean returns the arithmetic mean of the defined values of m, and false
// when there are none.
func Mean(v View, m Measure) (float64, bool) {
	var sum float64
	var n int
	for i := 0; i < v.Len(); i++ {
		if x, ok := m.Value(v.At(i)); ok {
			sum += x
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
