package wav_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/audio/wav"
)

func TestEncodeHeader(t *testing.T) {
	b := wav.Bytes(pcm.L16Mono16K, make([]int16, 160))
	if len(b) != 44+320 {
		t.Fatalf("len = %d, want %d", len(b), 44+320)
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Fatalf("bad header: %q", b[:44])
	}
	if rate := binary.LittleEndian.Uint32(b[24:]); rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if n := binary.LittleEndian.Uint32(b[40:]); n != 320 {
		t.Fatalf("data size = %d, want 320", n)
	}
}

func TestDecode(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	f, got, err := wav.Decode(bytes.NewReader(wav.Bytes(pcm.L16Mono24K, samples)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f != pcm.L16Mono24K {
		t.Fatalf("format = %v, want %v", f, pcm.L16Mono24K)
	}
	if !slices.Equal(got, samples) {
		t.Fatalf("samples = %v, want %v", got, samples)
	}
}

// stereoWAV builds a stereo file with an extra LIST chunk before data.
func stereoWAV(rate int, frames [][2]int16) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	data := new(bytes.Buffer)
	for _, fr := range frames {
		binary.Write(data, le, fr[0])
		binary.Write(data, le, fr[1])
	}
	list := []byte("INFOabc") // odd size, padded

	b.WriteString("RIFF")
	binary.Write(&b, le, uint32(4+24+8+len(list)+1+8+data.Len()))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, le, uint32(16))
	binary.Write(&b, le, uint16(1))
	binary.Write(&b, le, uint16(2))
	binary.Write(&b, le, uint32(rate))
	binary.Write(&b, le, uint32(rate*4))
	binary.Write(&b, le, uint16(4))
	binary.Write(&b, le, uint16(16))
	b.WriteString("LIST")
	binary.Write(&b, le, uint32(len(list)))
	b.Write(list)
	b.WriteByte(0)
	b.WriteString("data")
	binary.Write(&b, le, uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

func TestDecodeStereoWithExtraChunks(t *testing.T) {
	in := stereoWAV(48000, [][2]int16{{100, 300}, {-200, -400}})
	f, got, err := wav.Decode(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f != pcm.L16Mono48K {
		t.Fatalf("format = %v, want %v", f, pcm.L16Mono48K)
	}
	if want := []int16{200, -300}; !slices.Equal(got, want) {
		t.Fatalf("samples = %v, want %v", got, want)
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, _, err := wav.Decode(bytes.NewReader([]byte("RIFF\x00\x00\x00\x00AVI "))); !errors.Is(err, wav.ErrFormat) {
		t.Fatalf("non-WAVE: err = %v, want ErrFormat", err)
	}
	if _, _, err := wav.Decode(bytes.NewReader(stereoWAV(44100, nil))); !errors.Is(err, wav.ErrFormat) {
		t.Fatalf("44.1kHz: err = %v, want ErrFormat", err)
	}
}
