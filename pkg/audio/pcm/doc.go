// Package pcm describes the raw audio that flows through a pipeline: 16-bit
// little-endian mono PCM at one of a few fixed sample rates.
//
// A [Frame] is the unit of ingestion. Frames carry their own [Format] and the
// offset of their first sample from the start of the participant's stream, so
// that downstream components can compute sample-accurate boundaries without
// consulting a wall clock.
//
//	f := pcm.L16Mono16K
//	frames := f.Frames(samples, 20*time.Millisecond)
//	for _, fr := range frames {
//	    _ = fr.DBFS()
//	}
package pcm
