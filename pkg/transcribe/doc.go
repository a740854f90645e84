// Package transcribe sends finalized utterances to a speech-to-text provider.
//
// A [Dispatcher] performs exactly one provider request per Dispatch call. It
// rejects empty clips without touching the network, bounds every request with
// a timeout, and reports failures as typed errors:
//
//   - ErrEmptyClip: the segment has no samples.
//   - *TimeoutError (errors.Is(err, ErrTimeout)): no answer within the bound.
//   - *ProviderError: the provider answered with a non-success status or an
//     unusable body; Status and Detail carry what it said.
//
// Retrying is left to the caller. Provider implementations live in the
// openai, gemini and httpapi subpackages.
package transcribe
