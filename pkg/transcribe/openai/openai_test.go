package openai_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/audio/wav"
	"github.com/haivivi/scribe/pkg/transcribe"
	"github.com/haivivi/scribe/pkg/transcribe/openai"
)

func request() *transcribe.Request {
	return &transcribe.Request{
		Audio:    wav.Bytes(pcm.L16Mono16K, make([]int16, 1600)),
		MIMEType: wav.MIMEType,
		Format:   pcm.L16Mono16K,
		Language: "ko",
	}
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q, want whisper-1", got)
		}
		if got := r.FormValue("language"); got != "ko" {
			t.Errorf("language = %q, want ko", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if len(data) != 44+3200 {
				t.Errorf("file size = %d, want %d", len(data), 44+3200)
			}
			if hdr.Filename != "audio.wav" {
				t.Errorf("filename = %q", hdr.Filename)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"  안녕하세요  "}`)
	}))
	defer srv.Close()

	p := openai.New(openai.Config{APIKey: "sk-test", BaseURL: srv.URL})
	tr, err := p.Transcribe(context.Background(), request())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "안녕하세요" {
		t.Fatalf("Text = %q", tr.Text)
	}
	if tr.Language != "ko" {
		t.Fatalf("Language = %q", tr.Language)
	}
}

func TestTranscribeServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer srv.Close()

	p := openai.New(openai.Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := p.Transcribe(context.Background(), request())
	var pe *transcribe.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Transcribe = %v, want *ProviderError", err)
	}
	if pe.Status != 500 || !strings.Contains(pe.Detail, "upstream exploded") {
		t.Fatalf("ProviderError = %+v", pe)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("server called %d times, want 1", n)
	}
}
