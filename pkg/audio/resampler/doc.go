// Package resampler converts mono 16-bit PCM between the sample rates known
// to package pcm, using a pure Go polyphase resampler (no CGO).
//
// [Converter] keeps filter state across calls and is meant for streams that
// arrive frame by frame. [Clip] converts a complete clip in one call and
// returns exactly the number of samples the rate ratio implies.
//
//	out, err := resampler.Clip(samples, pcm.L16Mono48K, pcm.L16Mono16K)
package resampler
