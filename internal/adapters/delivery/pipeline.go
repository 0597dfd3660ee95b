package delivery

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/pkg/logger"
	"github.com/okian/pagepulse/pkg/metrics"
)

// Default pipeline configuration constants.
const (
	defaultFlushInterval = 30 * time.Second
	defaultBufferCap     = 50
	defaultRetryKeep     = 10
)

// Diagnostic reports delivery failures back into the page's event ring so
// they ride along in the next payload's trailer.
type Diagnostic func(eventType string, fields map[string]any)

// Pipeline batches assembled payloads: exits accumulate in a bounded
// drop-oldest buffer, a timer flushes the batch, conversions bypass the
// buffer entirely, and page-hide ships everything through the beacon.
type Pipeline struct {
	mu      sync.Mutex
	pending []model.Payload

	bufferCap int
	retryKeep int
	interval  time.Duration

	batcher Transport // timed flush path
	beacon  Transport // exit and immediate path

	diag Diagnostic
	log  logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPipeline creates a pipeline with configuration options. At minimum the
// batch and beacon transports must be provided.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		bufferCap: defaultBufferCap,
		retryKeep: defaultRetryKeep,
		interval:  defaultFlushInterval,
		diag:      func(string, map[string]any) {},
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("delivery")
	}
	return p
}

// Start launches the timed flush loop. The loop stops when ctx is canceled
// or the pipeline is stopped by an exit flush.
func (p *Pipeline) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				if p.Len() > 0 {
					p.Flush(ctx)
				}
			}
		}
	}()
}

// Enqueue buffers one payload, evicting the oldest when full. Dropping
// history beats blocking a UI-driven caller.
func (p *Pipeline) Enqueue(payload model.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, payload)
	metrics.RecordPayloadBuffered()
	if len(p.pending) > p.bufferCap {
		copy(p.pending, p.pending[1:])
		p.pending = p.pending[:len(p.pending)-1]
		metrics.RecordPayloadDropped()
	}
	metrics.UpdateBufferSize(len(p.pending))
}

// Len returns the number of buffered payloads.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush posts the entire buffer as one batch. The buffer is cleared before
// the send resolves; on failure at most the last retryKeep payloads are
// re-buffered so a dead webhook cannot regrow the batch without bound.
func (p *Pipeline) Flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.pending
	p.pending = nil
	metrics.UpdateBufferSize(0)
	p.mu.Unlock()

	body, err := json.Marshal(model.Batch{Batch: batch, BatchSize: len(batch)})
	if err != nil {
		p.log.Error(ctx, "batch marshal failed", logger.Error(err))
		return
	}

	if err := p.batcher.Send(ctx, body); err != nil {
		p.log.Warn(ctx, "batch send failed",
			logger.Int("batchSize", len(batch)),
			logger.Error(err),
		)
		metrics.RecordSendError()
		p.diag("send_error", map[string]any{"error": err.Error(), "batchSize": len(batch)})
		p.requeueTail(batch)
		return
	}
	metrics.RecordBatchSent()
}

// requeueTail puts the most recent payloads of a failed batch back in front
// of anything buffered since, preserving chronological order.
func (p *Pipeline) requeueTail(batch []model.Payload) {
	tail := batch
	if len(tail) > p.retryKeep {
		tail = tail[len(tail)-p.retryKeep:]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(append(make([]model.Payload, 0, len(tail)+len(p.pending)), tail...), p.pending...)
	if over := len(p.pending) - p.bufferCap; over > 0 {
		p.pending = p.pending[over:]
	}
	metrics.RecordPayloadsRequeued(len(tail))
	metrics.UpdateBufferSize(len(p.pending))
}

// SendNow ships one payload immediately, bypassing the buffer: beacon
// first, direct transport as fallback when the beacon cannot enqueue.
// Conversions are high value and low frequency, so they never wait.
func (p *Pipeline) SendNow(ctx context.Context, payload model.Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error(ctx, "payload marshal failed", logger.Error(err))
		return
	}

	if err := p.beacon.Send(ctx, body); err != nil {
		if err := p.batcher.Send(ctx, body); err != nil {
			p.log.Warn(ctx, "immediate send failed", logger.Error(err))
			metrics.RecordSendError()
			p.diag("send_error", map[string]any{
				"error":       err.Error(),
				"componentId": payload.ComponentID,
			})
			return
		}
	}
	metrics.RecordImmediateSend()
}

// ExitFlush stops the timer, appends the forced payloads, and transmits the
// whole buffer through the beacon exactly once. Any enqueue failure is
// accepted as lost telemetry; page teardown cannot wait.
func (p *Pipeline) ExitFlush(ctx context.Context, forced []model.Payload) {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.mu.Lock()
	for _, payload := range forced {
		p.pending = append(p.pending, payload)
		if len(p.pending) > p.bufferCap {
			copy(p.pending, p.pending[1:])
			p.pending = p.pending[:len(p.pending)-1]
			metrics.RecordPayloadDropped()
		}
	}
	batch := p.pending
	p.pending = nil
	metrics.UpdateBufferSize(0)
	p.mu.Unlock()

	metrics.RecordExitFlush()
	if len(batch) == 0 {
		return
	}

	body, err := json.Marshal(model.Batch{Batch: batch, BatchSize: len(batch)})
	if err != nil {
		p.log.Error(ctx, "exit batch marshal failed", logger.Error(err))
		return
	}
	if err := p.beacon.Send(ctx, body); err != nil {
		p.log.Warn(ctx, "exit flush beacon enqueue failed",
			logger.Int("batchSize", len(batch)),
			logger.Error(err),
		)
		metrics.RecordSendError()
	}
}
