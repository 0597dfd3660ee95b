// Package experiments hands out A/B bucket assignments for the page copy
// and style tests. Assignment is sticky per visitor: the first call decides
// the buckets, every later call returns the same ones. The cell is the
// factorial combination of the two buckets.
package experiments

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/pkg/logger"
)

// Bucket labels.
const (
	BucketA = "A"
	BucketB = "B"
)

// Weights configures the copy and style split. Values are relative, not
// percentages; {50, 50} and {1, 1} mean the same thing.
type Weights struct {
	CopyA  float64
	CopyB  float64
	StyleA float64
	StyleB float64
}

// DefaultWeights is an even split on both dimensions.
func DefaultWeights() Weights {
	return Weights{CopyA: 50, CopyB: 50, StyleA: 50, StyleB: 50}
}

type buckets struct {
	copyBucket  string
	styleBucket string
}

// Assigner is the sticky bucketing store. Safe for concurrent use.
type Assigner struct {
	mu       sync.Mutex
	assigned map[string]buckets

	weights Weights
	rng     func() float64
	clock   func() time.Time
	log     logger.Logger
}

// Option applies a configuration option to the Assigner.
type Option func(*Assigner)

// WithWeights sets the bucket split.
func WithWeights(w Weights) Option {
	return func(a *Assigner) {
		if w.CopyA+w.CopyB > 0 && w.StyleA+w.StyleB > 0 {
			a.weights = w
		}
	}
}

// WithRand sets the random source, injectable for tests.
func WithRand(rng func() float64) Option {
	return func(a *Assigner) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// WithClock sets the time source used to stamp exposures.
func WithClock(clock func() time.Time) Option {
	return func(a *Assigner) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the assigner.
func WithLogger(log logger.Logger) Option {
	return func(a *Assigner) {
		if log != nil {
			a.log = log
		}
	}
}

// New constructs an assigner with default configuration.
func New(opts ...Option) *Assigner {
	a := &Assigner{
		assigned: map[string]buckets{},
		weights:  DefaultWeights(),
		rng:      rand.Float64,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get().Named("experiments")
	}
	return a
}

// ExposureFor returns the visitor's exposure record, assigning buckets on
// first sight.
func (a *Assigner) ExposureFor(ctx context.Context, visitorID, sessionID string) model.Exposure {
	a.mu.Lock()
	b, ok := a.assigned[visitorID]
	if !ok {
		b = buckets{
			copyBucket:  weightedPick(a.rng(), a.weights.CopyA, a.weights.CopyB),
			styleBucket: weightedPick(a.rng(), a.weights.StyleA, a.weights.StyleB),
		}
		a.assigned[visitorID] = b
	}
	now := a.clock()
	a.mu.Unlock()

	if !ok {
		a.log.Debug(ctx, "assigned buckets",
			logger.String("visitorId", visitorID),
			logger.String("cell", cell(b)),
		)
	}

	return model.Exposure{
		SessionID:   sessionID,
		CopyBucket:  b.copyBucket,
		StyleBucket: b.styleBucket,
		Cell:        cell(b),
		AppliedCopy: map[string]string{},
		Timestamp:   now.UnixMilli(),
	}
}

// Current returns the visitor's buckets without assigning.
func (a *Assigner) Current(visitorID string) (copyBucket, styleBucket string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.assigned[visitorID]
	return b.copyBucket, b.styleBucket, ok
}

// Reset drops a visitor's assignment so the next exposure re-rolls.
func (a *Assigner) Reset(visitorID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.assigned, visitorID)
}

// Size returns the number of visitors with sticky assignments.
func (a *Assigner) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.assigned)
}

// CopyKey builds the copy lookup key for a slot given weather and page
// context. Calm weather and the home page contribute nothing to the key.
func CopyKey(bucket, slot, weatherMode, pageType string) string {
	key := fmt.Sprintf("%s_copy%s", slot, bucket)
	if weatherMode != "" && weatherMode != "calm" {
		key += "_wx_" + weatherMode
	}
	if pageType != "" && pageType != "home" {
		key += "_page_" + pageType
	}
	return key + "_v1"
}

// ThemeToken maps a style bucket to its theme token.
func ThemeToken(bucket string) string {
	if bucket == BucketA {
		return "themeA"
	}
	return "themeB"
}

func cell(b buckets) string {
	return b.copyBucket + "_" + b.styleBucket
}

// weightedPick picks A when the roll lands inside A's normalized share.
func weightedPick(roll, weightA, weightB float64) string {
	if roll < weightA/(weightA+weightB) {
		return BucketA
	}
	return BucketB
}
