package reduce

import "math"

// Threshold is the pair of limits applied to one channel. Big is the value
// change a direction reversal must exceed, Small the slope change that keeps
// a key without a reversal.
type Threshold struct {
	Big   float64
	Small float64
}

// DetectInflections returns the indexes of series worth keeping as keys.
// The first and last index are always included.
func DetectInflections(series []float64, big, small float64) []int {
	frames := make([]int, len(series))
	for i := range frames {
		frames[i] = i
	}
	return DetectInflectionsAt(frames, [][]float64{series}, []Threshold{{Big: big, Small: small}})
}

// DetectInflectionsAt is DetectInflections for several channels sampled at
// strictly increasing frames. values[c][i] is channel c at frames[i]. A key
// is kept when any channel needs it.
func DetectInflectionsAt(frames []int, values [][]float64, thresholds []Threshold) []int {
	n := len(frames)
	if n <= 2 {
		return append([]int(nil), frames...)
	}

	candidate := make([]bool, n)
	candidate[0], candidate[n-1] = true, true
	for c, series := range values {
		th := thresholds[c]
		last := 0
		for i := 1; i < n-1; i++ {
			if inflects(frames, series, th, i-1, i, i+1, last) {
				candidate[i] = true
				last = i
			}
		}
	}

	kept := make([]int, 0, n)
	for i, ok := range candidate {
		if ok {
			kept = append(kept, i)
		}
	}

	// drop keys that no longer stand out against their kept neighbours until
	// every remaining key does
	for changed := true; changed; {
		changed = false
		for j := 1; j < len(kept)-1; j++ {
			if !keepAgainst(frames, values, thresholds, kept[j-1], kept[j], kept[j+1]) {
				kept = append(kept[:j], kept[j+1:]...)
				changed = true
				j--
			}
		}
	}

	r := make([]int, len(kept))
	for j, i := range kept {
		r[j] = frames[i]
	}
	return r
}

func keepAgainst(frames []int, values [][]float64, thresholds []Threshold, prev, i, next int) bool {
	for c, series := range values {
		if inflects(frames, series, thresholds[c], prev, i, next, prev) {
			return true
		}
	}
	return false
}

// inflects applies the two threshold rule to point i between prev and next.
// last is the most recently kept point of the scan.
func inflects(frames []int, series []float64, th Threshold, prev, i, next, last int) bool {
	v := series[i]
	slopePrev := (v - series[prev]) / float64(frames[i]-frames[prev])
	slopeNext := (series[next] - v) / float64(frames[next]-frames[i])
	if slopePrev*slopeNext < 0 {
		return math.Abs(v-series[last]) > th.Big || math.Abs(v-series[prev]) > th.Big
	}
	return math.Abs(slopeNext-slopePrev) > th.Small
}
