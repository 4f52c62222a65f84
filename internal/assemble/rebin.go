package assemble

import "math"

// Rebin collapses a profile spectrum onto bins equally spaced across its
// observed m/z range. Only occupied bins are kept: the m/z of a bin is the
// mean of its points and the intensity is their sum.
func Rebin(mz, intensity []float64, bins int) ([]float64, []float64) {
	n := min(len(mz), len(intensity))
	if n == 0 || bins < 1 {
		return mz, intensity
	}
	lo, hi := mz[0], mz[0]
	for _, v := range mz[:n] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(bins)

	sumMZ := make([]float64, bins)
	sumInt := make([]float64, bins)
	count := make([]int, bins)
	for i := range n {
		b := 0
		if width > 0 {
			b = int((mz[i] - lo) / width)
		}
		b = min(max(b, 0), bins-1)
		sumMZ[b] += mz[i]
		sumInt[b] += intensity[i]
		count[b]++
	}

	outMZ := make([]float64, 0, bins)
	outInt := make([]float64, 0, bins)
	for b := range bins {
		if count[b] == 0 {
			continue
		}
		outMZ = append(outMZ, sumMZ[b]/float64(count[b]))
		outInt = append(outInt, sumInt[b])
	}
	return outMZ, outInt
}
