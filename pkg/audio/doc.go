// Package audio groups the audio sub-packages used by the transcription
// pipeline:
//
//   - pcm: mono 16-bit formats, frames and levels
//   - wav: clip encoding for providers and archives
//   - resampler: rate conversion between clients and providers
//   - codec/opus: libopus decoding of WebRTC tracks
//
// Example:
//
//	frames := pcm.L16Mono16K.Frames(samples, 20*time.Millisecond)
//	clip := wav.Bytes(pcm.L16Mono16K, samples)
package audio
