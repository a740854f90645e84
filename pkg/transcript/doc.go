// Package transcript persists recognized utterances.
//
// A Record is written exactly once. Its storage key is derived from the
// session, the participant and the utterance start and end times, so a
// retried write of the same utterance is rejected with ErrDuplicate
// instead of creating a second record. Records are never updated or
// deleted by the pipeline.
//
// KVSink stores msgpack-encoded records in a kv.Store. Records reads a
// session back in key order for display.
package transcript
