package simulate

import "time"

// Config holds configuration for the session simulator.
type Config struct {
	BaseURL     string        // Base URL of the agent
	NumSessions int           // Number of sessions to simulate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	ConvertRate float64       // Fraction of sessions that convert (0..1)
	Verbose     bool          // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	SessionsPlanned   int
	SessionsStarted   int
	SessionsCompleted int
	SessionsFailed    int
	EventsSubmitted   int
	Conversions       int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
