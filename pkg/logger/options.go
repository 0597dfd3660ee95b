package logger

import "io"

type options struct {
	json bool
	out  io.Writer
}

// Option applies a configuration option to Init.
type Option func(*options)

// WithJSON switches the handler to JSON output.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithOutput redirects log output, mainly for tests.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}
