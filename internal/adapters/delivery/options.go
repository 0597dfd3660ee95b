package delivery

import (
	"time"

	"github.com/okian/pagepulse/pkg/logger"
)

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithFlushInterval sets the timed flush cadence.
func WithFlushInterval(interval time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithBufferCap bounds the pending payload buffer.
func WithBufferCap(capacity int) PipelineOption {
	return func(p *Pipeline) {
		if capacity > 0 {
			p.bufferCap = capacity
		}
	}
}

// WithRetryKeep bounds how many payloads of a failed batch are re-buffered.
func WithRetryKeep(keep int) PipelineOption {
	return func(p *Pipeline) {
		if keep >= 0 {
			p.retryKeep = keep
		}
	}
}

// WithBatchTransport sets the timed flush transport.
func WithBatchTransport(t Transport) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.batcher = t
		}
	}
}

// WithBeaconTransport sets the exit and immediate path transport.
func WithBeaconTransport(t Transport) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.beacon = t
		}
	}
}

// WithDiagnostic sets the failure sink feeding the page's event ring.
func WithDiagnostic(diag Diagnostic) PipelineOption {
	return func(p *Pipeline) {
		if diag != nil {
			p.diag = diag
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(log logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}
