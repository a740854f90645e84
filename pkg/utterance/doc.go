// Package utterance captures the audio of one detected utterance.
//
// A [Recorder] belongs to a single participant stream. Every frame is written
// to it; it keeps a short look-back window so that a [Capture] opened when the
// detector reports SpeechStarted can include audio from before the detector
// made up its mind.
//
// A Capture is single-use. Finalize closes its write side and returns at
// once; the buffered audio is drained concurrently and Wait yields the
// immutable [Segment]. Abandon discards the capture instead. A Recorder holds
// at most one open Capture at a time.
package utterance
