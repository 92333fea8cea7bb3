package facetset

import "math"

// autoRanges splits [lower, upper] into at most maxItems buckets with
// human-friendly boundaries. The step is the smallest 1/2/5×10^n value that
// keeps the bucket count within maxItems; the bounds are snapped outward to
// step multiples, so (15.1, 19.9, 5) yields 15-16-17-18-19-20 and
// (151, 199, 5) yields 150-160-...-200. Fewer buckets than maxItems is fine
// when the snapped span does not need them.
func autoRanges(lower, upper float64, maxItems int) []RangeSpec {
	if maxItems <= 0 || upper <= lower {
		return nil
	}
	step := niceStep((upper - lower) / float64(maxItems))
	lo := math.Floor(lower/step+1e-9) * step
	hi := math.Ceil(upper/step-1e-9) * step
	n := int(math.Round((hi - lo) / step))
	if n < 1 {
		n = 1
	}
	out := make([]RangeSpec, n)
	for i := range n {
		out[i] = RangeSpec{Low: roundTo(lo+step*float64(i), step), High: roundTo(lo+step*float64(i+1), step)}
	}
	out[n-1].High = hi
	return out
}

// niceStep rounds ideal up to the nearest 1, 2 or 5 times a power of ten.
func niceStep(ideal float64) float64 {
	if ideal <= 0 {
		return 1
	}
	pow := math.Pow(10, math.Floor(math.Log10(ideal)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*pow >= ideal-1e-12 {
			return m * pow
		}
	}
	return 10 * pow
}

// roundTo clips float accumulation artifacts to the step's precision.
func roundTo(v, step float64) float64 {
	digits := 0
	for step < 1 && digits < 12 {
		step *= 10
		digits++
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
