package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
	// L16Mono8K represents audio/L16; rate=8000; channels=1
	L16Mono8K

	numFormats
)

// Format represents a mono 16-bit PCM format.
type Format int

// ForRate returns the format with the given sample rate.
func ForRate(rate int) (Format, error) {
	for f := Format(0); f < numFormats; f++ {
		if f.SampleRate() == rate {
			return f, nil
		}
	}
	return 0, fmt.Errorf("pcm: unsupported sample rate %d", rate)
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	return f >= 0 && f < numFormats
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	case L16Mono8K:
		return 8000
	}
	panic("pcm: invalid audio type")
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(int64(f.SampleRate()) * int64(d) / int64(time.Second))
}

// Duration returns the playback duration of n samples.
func (f Format) Duration(n int) time.Duration {
	return time.Duration(int64(n) * int64(time.Second) / int64(f.SampleRate()))
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * 2
}

// Frames splits samples into frames of the given duration. The last frame may
// be shorter. Offsets start at zero.
func (f Format) Frames(samples []int16, frame time.Duration) []Frame {
	return f.FramesAt(samples, frame, 0)
}

// FramesAt is like Frames but the first frame starts at offset.
func (f Format) FramesAt(samples []int16, frame time.Duration, offset time.Duration) []Frame {
	size := f.SamplesInDuration(frame)
	if size <= 0 {
		size = len(samples)
	}
	out := make([]Frame, 0, (len(samples)+size-1)/max(size, 1))
	for pos := 0; pos < len(samples); pos += size {
		end := min(pos+size, len(samples))
		out = append(out, Frame{
			Format:  f,
			Offset:  offset + f.Duration(pos),
			Samples: samples[pos:end],
		})
	}
	return out
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("pcm.Format(%d)", int(f))
	}
	return fmt.Sprintf("audio/L16; rate=%d; channels=1", f.SampleRate())
}

// Frame is a chunk of mono samples and its position in the stream.
type Frame struct {
	Format Format

	// Offset is the stream position of Samples[0], measured from the first
	// sample the source ever delivered.
	Offset time.Duration

	Samples []int16
}

// Duration returns the playback duration of the frame.
func (fr Frame) Duration() time.Duration {
	return fr.Format.Duration(len(fr.Samples))
}

// End returns the stream position just after the last sample.
func (fr Frame) End() time.Duration {
	return fr.Offset + fr.Duration()
}

// RMS returns the root mean square amplitude normalized to [0, 1].
func (fr Frame) RMS() float64 {
	if len(fr.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range fr.Samples {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(fr.Samples)))
}

// DBFS returns the frame level in decibels relative to full scale. Digital
// silence returns -Inf.
func (fr Frame) DBFS() float64 {
	rms := fr.RMS()
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// DecodeL16 converts little-endian 16-bit PCM bytes into samples. A trailing
// odd byte is ignored.
func DecodeL16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

// EncodeL16 converts samples into little-endian 16-bit PCM bytes.
func EncodeL16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
