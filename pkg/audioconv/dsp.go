package audioconv

import "math"

func intsToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(math.Max(-1, math.Min(1, float64(v)*scale)))
	}
	return out
}

func int16sToFloat(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

// downmix averages interleaved frames into one channel.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := range out {
		var sum float64
		for _, v := range in[i*channels : (i+1)*channels] {
			sum += float64(v)
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample converts between rates with linear interpolation.
func resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || len(in) == 0 {
		return in
	}

	ratio := float64(to) / float64(from)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	last := len(in) - 1

	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(src - float64(i0))
		out[i] = in[i0]*(1-frac) + in[i0+1]*frac
	}
	return out
}
