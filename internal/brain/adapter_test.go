package brain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestNewAdapterModes(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "http"}); err == nil {
		t.Fatalf("http mode without url should fail")
	}
	if _, err := NewAdapter(Config{Mode: "teapot"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}

	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewAdapter(auto) error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("auto without url should resolve to mock, got %T", a)
	}
}

func TestHTTPAdapterComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"The sky is blue because of scattering!"}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 0)
	got, err := a.Complete(context.Background(), "prompt", Params{MaxTokens: 128})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(got, "scattering") {
		t.Fatalf("unexpected completion %q", got)
	}
}

func TestHTTPAdapterRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 0)
	_, err := a.Complete(context.Background(), "prompt", Params{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable on 503", err)
	}
}

func TestHTTPAdapterRecoversAfterTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"text":"all good now"}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 0)
	got, err := a.Complete(context.Background(), "prompt", Params{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "all good now" {
		t.Fatalf("completion = %q, want retried result", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("upstream calls = %d, want 2", calls)
	}
}

func TestMockAdapterEchoesQuestion(t *testing.T) {
	a := NewMockAdapter()
	prompt := "header\n\n---\nCHILD'S MESSAGE:\nWhy is the sky blue?\n\n---\nYOUR RESPONSE:"
	got, err := a.Complete(context.Background(), prompt, Params{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(got, "Why is the sky blue?") {
		t.Fatalf("mock reply %q should reference the question", got)
	}
}
