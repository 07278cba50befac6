package transport

import (
	"bytes"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"
)

// RetryTransport is an http.RoundTripper that retries failed requests with
// exponential backoff (2^attempt x 100ms). Responses with 5xx status codes
// count as failures; 4xx responses are returned as-is. When retries are
// exhausted the last 5xx response is returned with a readable body.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	maxRetries := t.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	// Buffer the body so it can be replayed on retry.
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
			log.Printf("[Transport] Retry %d/%d for %s %s", attempt, maxRetries-1, req.Method, req.URL)
		}

		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err = base.RoundTrip(req)
		if err != nil {
			continue
		}
		if resp.StatusCode >= 500 && attempt < maxRetries-1 {
			// Another attempt follows; release this response. The final
			// attempt's 5xx is returned with its body intact so the caller
			// can still read the upstream error text.
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}

	return nil, err
}

// LoggingTransport is an http.RoundTripper that logs request and response
// bodies at debug level.
type LoggingTransport struct {
	Base     http.RoundTripper
	LogLevel string
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if strings.ToLower(t.LogLevel) != "debug" {
		return base.RoundTrip(req)
	}

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	log.Printf("DEBUG OUTBOUND REQUEST: [%s] %s", req.Method, req.URL.String())
	if len(reqBody) > 0 {
		log.Printf("DEBUG OUTBOUND REQUEST BODY: %s", string(reqBody))
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	log.Printf("DEBUG OUTBOUND RESPONSE: %d %s", resp.StatusCode, req.URL.String())

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(bytes.NewBuffer(respBody))

	if len(respBody) > 0 {
		log.Printf("DEBUG OUTBOUND RESPONSE BODY: %s", string(respBody))
	}

	return resp, nil
}

// NewHTTPClient builds the shared outbound client: retrying transport wrapped
// in optional debug logging, bounded by the default timeout.
func NewHTTPClient(timeout time.Duration, logLevel string) *http.Client {
	return &http.Client{
		Transport: &LoggingTransport{
			Base: &RetryTransport{
				Base:       http.DefaultTransport,
				MaxRetries: 3,
			},
			LogLevel: logLevel,
		},
		Timeout: timeout,
	}
}
