package transcode

import "math"

// applyGain scales interleaved PCM samples in place. 100 is unity and a
// no-op; values above 100 amplify and clip at the int16 range.
func applyGain(samples []int16, percent int) {
	if percent == 100 {
		return
	}
	for i, s := range samples {
		scaled := int64(s) * int64(percent) / 100
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		samples[i] = int16(scaled)
	}
}
