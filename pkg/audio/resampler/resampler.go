package resampler

import (
	"fmt"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// Converter resamples a mono stream from one format to another. It is safe
// for concurrent use, but samples passed from different goroutines are
// treated as one stream.
type Converter struct {
	src pcm.Format
	dst pcm.Format

	mu sync.Mutex
	rs resampling.Resampler // nil when src == dst
}

// New creates a Converter from src to dst.
func New(src, dst pcm.Format) (*Converter, error) {
	if !src.Valid() || !dst.Valid() {
		return nil, fmt.Errorf("resampler: invalid format %v -> %v", src, dst)
	}
	c := &Converter{src: src, dst: dst}
	if src == dst {
		return c, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dst.SampleRate()),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create %v -> %v: %w", src, dst, err)
	}
	c.rs = rs
	return c, nil
}

// Src returns the input format.
func (c *Converter) Src() pcm.Format { return c.src }

// Dst returns the output format.
func (c *Converter) Dst() pcm.Format { return c.dst }

// Convert resamples the next block of the stream. Because of filter delay the
// output of a single call is not exactly proportional to its input.
func (c *Converter) Convert(samples []int16) ([]int16, error) {
	if c.rs == nil {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out, nil
	}
	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s) / 32768.0
	}

	c.mu.Lock()
	res, err := c.rs.Process(in)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}

	out := make([]int16, len(res))
	for i, v := range res {
		out[i] = toInt16(v)
	}
	return out, nil
}

// tailPadding is appended to clips so the filter delay line drains before
// the output is truncated to its nominal length.
const tailPadding = 64

// Clip resamples a complete clip. The result has len(samples)*dst/src
// samples (rounded down).
func Clip(samples []int16, src, dst pcm.Format) ([]int16, error) {
	c, err := New(src, dst)
	if err != nil {
		return nil, err
	}
	if src == dst {
		return c.Convert(samples)
	}

	padded := make([]int16, len(samples)+src.SampleRate()/1000*tailPadding)
	copy(padded, samples)
	out, err := c.Convert(padded)
	if err != nil {
		return nil, err
	}

	want := int(int64(len(samples)) * int64(dst.SampleRate()) / int64(src.SampleRate()))
	switch {
	case len(out) > want:
		out = out[:want]
	case len(out) < want:
		out = append(out, make([]int16, want-len(out))...)
	}
	return out, nil
}

func toInt16(v float64) int16 {
	switch {
	case v >= 1.0:
		return 32767
	case v <= -1.0:
		return -32768
	}
	return int16(v * 32767.0)
}
