package opus

/*
#cgo pkg-config: opus
#include <opus.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

// maxPacket is the recommended output buffer size for opus_encode.
const maxPacket = 4000

// Encoder encodes mono voice. It exists for clients and tests that need
// real Opus packets.
type Encoder struct {
	sampleRate int
	cEnc       *C.OpusEncoder
}

// NewEncoder creates a mono encoder tuned for speech.
func NewEncoder(sampleRate int) (*Encoder, error) {
	var code C.int
	cEnc := C.opus_encoder_create(C.opus_int32(sampleRate), 1, C.OPUS_APPLICATION_VOIP, &code)
	if code != C.OPUS_OK {
		return nil, opusError("create encoder", code)
	}
	return &Encoder{sampleRate: sampleRate, cEnc: cEnc}, nil
}

// SampleRate returns the input rate.
func (e *Encoder) SampleRate() int { return e.sampleRate }

// Encode encodes one frame. len(pcm) must be a valid Opus frame size
// (2.5, 5, 10, 20, 40 or 60ms at the encoder rate).
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if e.cEnc == nil {
		return nil, ErrClosed
	}
	if len(pcm) == 0 {
		return nil, nil
	}
	buf := make([]byte, maxPacket)
	n := C.opus_encode(e.cEnc,
		(*C.opus_int16)(unsafe.Pointer(&pcm[0])), C.int(len(pcm)),
		(*C.uchar)(unsafe.Pointer(&buf[0])), C.opus_int32(len(buf)))
	if n < 0 {
		return nil, opusError("encode", n)
	}
	return buf[:n], nil
}

// Close releases the encoder. It is idempotent.
func (e *Encoder) Close() {
	if e.cEnc != nil {
		C.opus_encoder_destroy(e.cEnc)
		e.cEnc = nil
	}
}
