// Package delivery buffers assembled payloads and ships them to the
// collector webhook: a timed batch path, an immediate path for conversions,
// and a beacon-style exit path that survives page teardown.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Default transport configuration constants.
const (
	defaultSendTimeout     = 5 * time.Second
	defaultBeaconQueueSize = 64
	beaconDrainTimeout     = 10 * time.Second
)

// Transport delivers one encoded body to the collector endpoint. Callers
// depend only on this interface; which implementation backs it is a
// runtime choice.
type Transport interface {
	Send(ctx context.Context, body []byte) error
}

// HTTPTransport posts JSON directly. The request is detached from the
// caller's cancellation so an in-flight send can outlive the triggering
// navigation for a bounded interval, mirroring keepalive semantics.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// HTTPOption applies a configuration option to the HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHTTPTimeout bounds each send attempt.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// NewHTTPTransport creates a direct transport for the given endpoint.
func NewHTTPTransport(endpoint string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint: endpoint,
		client:   http.DefaultClient,
		timeout:  defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send posts the body and fails on transport errors or non-2xx statuses.
func (t *HTTPTransport) Send(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrSendRejected, resp.StatusCode)
	}
	return nil
}

// Beacon mimics navigator.sendBeacon: Send only enqueues for best-effort
// background delivery and never blocks the caller. The drain goroutine
// posts bodies as text/plain (no preflight) and ignores responses. Send
// fails only when the queue is full or the beacon is closed; the caller
// then falls back to the direct transport.
type Beacon struct {
	endpoint  string
	client    *http.Client
	timeout   time.Duration
	queueSize int
	queue     chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// BeaconOption applies a configuration option to the Beacon.
type BeaconOption func(*Beacon)

// WithBeaconClient sets a custom HTTP client.
func WithBeaconClient(client *http.Client) BeaconOption {
	return func(b *Beacon) {
		if client != nil {
			b.client = client
		}
	}
}

// WithBeaconTimeout bounds each background post.
func WithBeaconTimeout(timeout time.Duration) BeaconOption {
	return func(b *Beacon) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithBeaconQueueSize sets the enqueue capacity.
func WithBeaconQueueSize(size int) BeaconOption {
	return func(b *Beacon) {
		if size > 0 {
			b.queueSize = size
		}
	}
}

// NewBeacon creates a beacon transport and starts its drain goroutine.
func NewBeacon(endpoint string, opts ...BeaconOption) *Beacon {
	b := &Beacon{
		endpoint:  endpoint,
		client:    http.DefaultClient,
		timeout:   defaultSendTimeout,
		queueSize: defaultBeaconQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan []byte, b.queueSize)

	go b.drain()
	return b
}

// Send enqueues the body for background delivery.
func (b *Beacon) Send(_ context.Context, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBeaconClosed
	}
	select {
	case b.queue <- body:
		return nil
	default:
		return ErrBeaconFull
	}
}

func (b *Beacon) drain() {
	defer close(b.done)
	for body := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("Content-Type", "text/plain")

		// fire and forget: delivery is best effort by contract
		if resp, err := b.client.Do(req); err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		cancel()
	}
}

// Close stops accepting sends and waits for queued bodies to drain, bounded
// by the context and a hard cap.
func (b *Beacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("beacon drain interrupted: %w", ctx.Err())
	case <-time.After(beaconDrainTimeout):
		return fmt.Errorf("beacon drain interrupted: %w", context.DeadlineExceeded)
	}
}
