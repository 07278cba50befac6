package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetryTransport_RecoversFrom5xx(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, "recovered")
	}))
	defer ts.Close()

	client := &http.Client{Transport: &RetryTransport{MaxRetries: 3}}

	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after retry, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryTransport_ExhaustedRetriesKeepBodyReadable(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "upstream exploded")
	}))
	defer ts.Close()

	client := &http.Client{Transport: &RetryTransport{MaxRetries: 2}}

	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 after exhausted retries, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}

	// The last response's body must still be open so the caller can read
	// the upstream error text.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("expected readable body on final response, got %v", err)
	}
	if string(body) != "upstream exploded" {
		t.Errorf("expected upstream error text, got %q", body)
	}
}

func TestRetryTransport_ReplaysRequestBody(t *testing.T) {
	var calls int32
	var lastBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody = string(body)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := &http.Client{Transport: &RetryTransport{MaxRetries: 3}}

	resp, err := client.Post(ts.URL, "application/json", strings.NewReader(`{"prompt":"hi"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if lastBody != `{"prompt":"hi"}` {
		t.Errorf("expected body replayed on retry, got %q", lastBody)
	}
}

func TestRetryTransport_DoesNotRetry4xx(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := &http.Client{Transport: &RetryTransport{MaxRetries: 3}}

	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 returned as-is, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt for 4xx, got %d", calls)
	}
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(10*time.Second, "info")

	if client.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", client.Timeout)
	}

	logging, ok := client.Transport.(*LoggingTransport)
	if !ok {
		t.Fatalf("expected LoggingTransport, got %T", client.Transport)
	}
	if _, ok := logging.Base.(*RetryTransport); !ok {
		t.Errorf("expected RetryTransport base, got %T", logging.Base)
	}
}
