// Package vad turns a continuous stream of PCM frames into speech boundaries.
//
// A [Detector] is a two-state machine (Idle, Speaking) driven by a per-frame
// speech probability from a [Scorer]. It enters Speaking once frames scoring
// at or above the positive threshold have lasted MinSpeech, and returns to
// Idle once frames scoring below the strictly lower negative threshold have
// lasted MinSilence. Frames between the two thresholds keep the current
// state, which stops the detector from flapping near the boundary.
//
// Boundaries are reported as stream offsets, not wall-clock times:
// SpeechStarted carries the offset of the first frame of the run that
// triggered it, and SpeechEnded the offset just past the last non-silent
// frame. A MaxUtterance cutoff ends an utterance that never pauses with a
// synthetic SpeechEnded whose Forced flag is set.
//
// Closing a Detector while Speaking abandons the utterance: no SpeechEnded is
// emitted.
package vad
