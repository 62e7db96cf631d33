package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestCleanText(t *testing.T) {
	testcases := []struct {
		input string
		want  string
	}{
		{"Arre wah, kya baat hai!", "Arre wah, kya baat hai!"},
		{"34°C & sunny :) #mausam", "34C  sunny  mausam"},
		{"theek hai... chalo?", "theek hai... chalo?"},
		{"***", ""},
	}
	for _, tc := range testcases {
		if got := CleanText(tc.input); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

type stubSynth struct {
	audio []byte
	err   error
	calls int
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

func TestService_PrimaryThenFallback(t *testing.T) {
	primary := &stubSynth{err: errors.New("401 unauthorized")}
	fallback := &stubSynth{audio: []byte("mp3-bytes")}
	svc := NewService(primary, fallback, nil, "Rachel")

	audio := svc.Synthesize(context.Background(), "namaste ji")
	if string(audio) != "mp3-bytes" {
		t.Fatalf("fallback audio not returned: %q", audio)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("calls primary=%d fallback=%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestService_NilPrimarySkipsToFallback(t *testing.T) {
	fallback := &stubSynth{audio: []byte("mp3")}
	svc := NewService(nil, fallback, nil, "")

	if audio := svc.Synthesize(context.Background(), "hello"); audio == nil {
		t.Fatal("expected fallback audio")
	}
}

func TestService_AllFailuresYieldNil(t *testing.T) {
	svc := NewService(
		&stubSynth{err: errors.New("down")},
		&stubSynth{err: errors.New("also down")},
		nil, "")

	if audio := svc.Synthesize(context.Background(), "hello"); audio != nil {
		t.Fatalf("expected nil audio, got %d bytes", len(audio))
	}
}

func TestService_EmptyAfterCleaningYieldsNil(t *testing.T) {
	primary := &stubSynth{audio: []byte("mp3")}
	svc := NewService(primary, nil, nil, "")

	if audio := svc.Synthesize(context.Background(), "@#$%^&*"); audio != nil {
		t.Fatal("symbol-only text must not be synthesized")
	}
	if primary.calls != 0 {
		t.Fatal("synthesizer must not be called for empty cleaned text")
	}
}

func TestElevenLabsSynthesizer_RequestBodyIsValidJSON(t *testing.T) {
	var gotBody map[string]string
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	synth := NewElevenLabsSynthesizer("test-key", "Rachel", "eleven_multilingual_v2")
	synth.apiBase = server.URL

	// Quotes and non-ASCII text must survive encoding intact.
	text := "bola tha na, \"chill\" karo! 34°C hai"
	audio, err := synth.Synthesize(context.Background(), text)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotBody["text"] != text {
		t.Fatalf("text = %q, want %q", gotBody["text"], text)
	}
	if gotBody["model_id"] != "eleven_multilingual_v2" {
		t.Fatalf("model_id = %q", gotBody["model_id"])
	}
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "state", "audio.db"))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Close()

	key := hashText("namaste ji")
	if _, ok, err := cache.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}

	if err := cache.Put(ctx, key, "Rachel", []byte("mp3-bytes")); err != nil {
		t.Fatalf("put: %v", err)
	}

	audio, ok, err := cache.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}

	// Same text re-cached replaces, never duplicates.
	if err := cache.Put(ctx, key, "Rachel", []byte("newer-mp3")); err != nil {
		t.Fatalf("re-put: %v", err)
	}
	audio, _, _ = cache.Get(ctx, key)
	if string(audio) != "newer-mp3" {
		t.Fatalf("replace lost: %q", audio)
	}
}

func TestService_CacheAvoidsResynthesis(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "audio.db"))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Close()

	synth := &stubSynth{audio: []byte("mp3")}
	svc := NewService(synth, nil, cache, "Rachel")

	if audio := svc.Synthesize(ctx, "namaste ji"); audio == nil {
		t.Fatal("first synthesis failed")
	}
	if audio := svc.Synthesize(ctx, "namaste ji"); audio == nil {
		t.Fatal("cached synthesis failed")
	}
	if synth.calls != 1 {
		t.Fatalf("synthesizer called %d times, want 1 (second hit served from cache)", synth.calls)
	}

	// Hash is case-insensitive over cleaned text.
	if audio := svc.Synthesize(ctx, "NAMASTE JI"); audio == nil {
		t.Fatal("case-variant synthesis failed")
	}
	if synth.calls != 1 {
		t.Fatalf("case variant should hit the cache, calls=%d", synth.calls)
	}
}
