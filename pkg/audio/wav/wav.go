// Package wav reads and writes RIFF/WAVE containers holding 16-bit linear
// PCM. Clips are sent to transcription providers and archived in this form.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// MIMEType is the content type used when a clip is uploaded.
const MIMEType = "audio/wav"

const headerSize = 44

// ErrFormat is returned by Decode for input that is not 16-bit PCM WAVE.
var ErrFormat = errors.New("wav: unsupported format")

// Encode writes samples as a mono 16-bit WAVE file.
func Encode(w io.Writer, f pcm.Format, samples []int16) error {
	dataLen := uint32(len(samples) * 2)
	var h [headerSize]byte
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], 36+dataLen)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], 1) // mono
	binary.LittleEndian.PutUint32(h[24:], uint32(f.SampleRate()))
	binary.LittleEndian.PutUint32(h[28:], uint32(f.BytesRate()))
	binary.LittleEndian.PutUint16(h[32:], 2)
	binary.LittleEndian.PutUint16(h[34:], 16)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], dataLen)
	if _, err := w.Write(h[:]); err != nil {
		return err
	}
	_, err := w.Write(pcm.EncodeL16(samples))
	return err
}

// Bytes returns samples encoded as a WAVE file.
func Bytes(f pcm.Format, samples []int16) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(samples)*2)
	_ = Encode(&buf, f, samples) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

// Decode reads a WAVE file. Stereo input is downmixed to mono. The sample
// rate must be one supported by package pcm.
func Decode(r io.Reader) (pcm.Format, []int16, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, nil, fmt.Errorf("wav: read header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrFormat)
	}

	var (
		channels int
		rate     int
		haveFmt  bool
	)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return 0, nil, fmt.Errorf("wav: read chunk: %w", err)
		}
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:]))

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, nil, fmt.Errorf("%w: short fmt chunk", ErrFormat)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return 0, nil, fmt.Errorf("wav: read fmt: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:])
			channels = int(binary.LittleEndian.Uint16(body[2:]))
			rate = int(binary.LittleEndian.Uint32(body[4:]))
			bits := binary.LittleEndian.Uint16(body[14:])
			if audioFormat != 1 || bits != 16 || channels < 1 || channels > 2 {
				return 0, nil, fmt.Errorf("%w: format=%d bits=%d channels=%d", ErrFormat, audioFormat, bits, channels)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return 0, nil, fmt.Errorf("%w: data before fmt", ErrFormat)
			}
			f, err := pcm.ForRate(rate)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			data, err := io.ReadAll(io.LimitReader(r, size))
			if err != nil {
				return 0, nil, fmt.Errorf("wav: read data: %w", err)
			}
			samples := pcm.DecodeL16(data)
			if channels == 2 {
				samples = downmix(samples)
			}
			return f, samples, nil

		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return 0, nil, fmt.Errorf("wav: skip %q: %w", id, err)
			}
		}
	}
}

func downmix(stereo []int16) []int16 {
	out := make([]int16, len(stereo)/2)
	for i := range out {
		out[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return out
}
