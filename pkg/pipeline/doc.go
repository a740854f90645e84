// Package pipeline turns per-participant audio streams into transcript
// records.
//
// A Pipeline owns one participant: it reads frames from a Source, runs them
// through a vad.Detector and an utterance.Recorder, and hands every
// finalized utterance to a dispatch worker that transcribes and persists
// it. Frames are written to the recorder before the detector sees them, so
// the capture opened on SpeechStarted already holds the backdated audio.
//
// Ingestion never waits on transcription. The dispatch worker processes
// utterances one at a time in the order they ended, so a participant's
// transcript lines are persisted in speaking order.
//
// A Supervisor keeps the set of live pipelines keyed by participant ID and
// routes frames to them. Failures stay inside the utterance (or, for
// construction errors, the participant) they happened in.
package pipeline
