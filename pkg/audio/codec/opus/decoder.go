// Package opus binds libopus for decoding participant audio received over
// WebRTC. It requires cgo and a system libopus found through pkg-config.
package opus

/*
#cgo pkg-config: opus
#include <opus.h>
#include <stdlib.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("opus: codec closed")

// maxFrame is the largest Opus packet duration, 120ms, at 48kHz.
const maxFrame = 5760

func opusError(op string, code C.int) error {
	return fmt.Errorf("opus: %s: %s", op, C.GoString(C.opus_strerror(code)))
}

// Decoder decodes a mono Opus stream.
type Decoder struct {
	sampleRate int
	cDec       *C.OpusDecoder
}

// NewDecoder creates a mono decoder producing samples at sampleRate
// (8000, 12000, 16000, 24000 or 48000). Stereo packets are downmixed by
// libopus.
func NewDecoder(sampleRate int) (*Decoder, error) {
	var code C.int
	cDec := C.opus_decoder_create(C.opus_int32(sampleRate), 1, &code)
	if code != C.OPUS_OK {
		return nil, opusError("create decoder", code)
	}
	return &Decoder{sampleRate: sampleRate, cDec: cDec}, nil
}

// SampleRate returns the output rate.
func (d *Decoder) SampleRate() int { return d.sampleRate }

// Decode decodes one packet.
func (d *Decoder) Decode(packet []byte) ([]int16, error) {
	if len(packet) == 0 {
		return nil, errors.New("opus: empty packet")
	}
	return d.decode(packet, d.sampleRate*maxFrame/48000)
}

// Conceal synthesizes n samples in place of lost packets. n must be a
// multiple of 2.5ms at the decoder rate.
func (d *Decoder) Conceal(n int) ([]int16, error) {
	if n <= 0 {
		return nil, nil
	}
	return d.decode(nil, n)
}

func (d *Decoder) decode(packet []byte, capacity int) ([]int16, error) {
	if d.cDec == nil {
		return nil, ErrClosed
	}
	buf := make([]int16, capacity)
	var data *C.uchar
	if len(packet) > 0 {
		data = (*C.uchar)(unsafe.Pointer(&packet[0]))
	}
	n := C.opus_decode(d.cDec, data, C.opus_int32(len(packet)),
		(*C.opus_int16)(unsafe.Pointer(&buf[0])), C.int(capacity), 0)
	if n < 0 {
		return nil, opusError("decode", n)
	}
	return buf[:n], nil
}

// Close releases the decoder. It is idempotent.
func (d *Decoder) Close() {
	if d.cDec != nil {
		C.opus_decoder_destroy(d.cDec)
		d.cDec = nil
	}
}
