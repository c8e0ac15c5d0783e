package indicator

import "math"

// Series helpers work on float64 slices where NaN marks an undefined value.
// Rolling windows need every value in the window; ewm follows pandas
// ewm(adjust=False, ignore_na=False).

func nan() float64 { return math.NaN() }

func rollingMean(xs []float64, k int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = nan()
		if i < k-1 {
			continue
		}
		sum := 0.0
		for _, v := range xs[i-k+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(k)
	}
	return out
}

func rollingMax(xs []float64, k int) []float64 {
	return rolling(xs, k, math.Max)
}

func rollingMin(xs []float64, k int) []float64 {
	return rolling(xs, k, math.Min)
}

func rolling(xs []float64, k int, pick func(a, b float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = nan()
		if i < k-1 {
			continue
		}
		acc := xs[i-k+1]
		for _, v := range xs[i-k+2 : i+1] {
			acc = pick(acc, v)
		}
		// math.Max/Min propagate NaN, matching a window with a missing value
		out[i] = acc
	}
	return out
}

// ewm is the recursive exponential mean seeded from the first defined value.
// A missing observation repeats the previous mean and decays its weight, so
// the next observation counts slightly more.
func ewm(xs []float64, alpha float64) []float64 {
	out := make([]float64, len(xs))
	weighted := nan()
	oldWt := 1.0

	for i, cur := range xs {
		isObs := !math.IsNaN(cur)
		switch {
		case math.IsNaN(weighted):
			if isObs {
				weighted = cur
			}
		default:
			oldWt *= 1 - alpha
			if isObs {
				if weighted != cur {
					weighted = (oldWt*weighted + alpha*cur) / (oldWt + alpha)
				}
				oldWt = 1
			}
		}
		out[i] = weighted
	}
	return out
}

// spanAlpha converts a span to a smoothing factor
func spanAlpha(span int) float64 {
	return 2 / (float64(span) + 1)
}

// comAlpha converts a center of mass to a smoothing factor
func comAlpha(com float64) float64 {
	return 1 / (1 + com)
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// diff returns x[i] - x[i-1], undefined at index 0
func diff(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 {
			out[i] = nan()
			continue
		}
		out[i] = xs[i] - xs[i-1]
	}
	return out
}
