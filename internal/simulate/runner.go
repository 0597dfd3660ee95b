// Package simulate drives the ingest API with synthetic visitor sessions:
// plausible page bootstraps, scripted scroll-through journeys, and a
// configurable conversion rate. It exists to exercise a running agent end
// to end, not to assert on its output.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pagepulse/pkg/logger"
)

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		SessionsPlanned: config.NumSessions,
		StartTime:       time.Now(),
	}

	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting session simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.Int("workers", config.Workers),
		logger.Float64("convertRate", config.ConvertRate),
	)

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	var (
		started     int64
		completed   int64
		failed      int64
		submitted   int64
		conversions int64
	)

	sessionChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			client := newHTTPClient(config.Timeout)

			for range sessionChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				convert := rng.Float64() < config.ConvertRate
				n, err := runSession(ctx, client, config, rng, convert)
				atomic.AddInt64(&started, 1)
				atomic.AddInt64(&submitted, int64(n))
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "session failed", logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&completed, 1)
				if convert {
					atomic.AddInt64(&conversions, 1)
				}
			}
		}(i)
	}

	go func() {
		defer close(sessionChan)
		for i := 0; i < config.NumSessions; i++ {
			select {
			case <-ctx.Done():
				return
			case sessionChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.SessionsStarted = int(atomic.LoadInt64(&started))
	stats.SessionsCompleted = int(atomic.LoadInt64(&completed))
	stats.SessionsFailed = int(atomic.LoadInt64(&failed))
	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.Conversions = int(atomic.LoadInt64(&conversions))
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "simulation completed",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("conversions", stats.Conversions),
		logger.String("duration", stats.Duration.String()),
	)

	if stats.SessionsFailed > 0 && stats.SessionsCompleted == 0 {
		return fmt.Errorf("all %d sessions failed", stats.SessionsFailed)
	}
	return nil
}

// eventChunkSize is how many events ride in one relay batch, mirroring the
// page script's flush size.
const eventChunkSize = 20

// runSession plays one scripted visitor through the ingest API. Returns the
// number of events submitted.
func runSession(ctx context.Context, client *httpClient, config *Config, rng *rand.Rand, convert bool) (int, error) {
	var created struct {
		SessionID string `json:"sessionId"`
	}
	status, err := client.postJSON(ctx, config.BaseURL+"/sessions", map[string]any{
		"page": randomPageInfo(rng),
	}, &created)
	if err != nil {
		return 0, err
	}
	if status != statusCreated {
		return 0, fmt.Errorf("session creation returned status %d", status)
	}

	events := journey(rng, convert)
	for sent := 0; sent < len(events); sent += eventChunkSize {
		end := sent + eventChunkSize
		if end > len(events) {
			end = len(events)
		}
		chunk := events[sent:end]

		status, err := client.postJSON(ctx, config.BaseURL+"/events", map[string]any{
			"sessionId": created.SessionID,
			"events":    chunk,
		}, nil)
		if err != nil {
			return sent, err
		}
		if status != statusAccepted {
			return sent, fmt.Errorf("event relay returned status %d", status)
		}
	}
	return len(events), nil
}

// checkServiceHealth verifies the agent is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}
