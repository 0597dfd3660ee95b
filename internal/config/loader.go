package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if PAGEPULSE_CONFIG is set
//  3. env (prefix PAGEPULSE_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PAGEPULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	// Environment variables: PAGEPULSE_ADDR, PAGEPULSE_WEBHOOK_URL, ...
	// Map env keys like PAGEPULSE_WEBHOOK_URL -> webhook_url (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PAGEPULSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pagepulse_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalid)
	}
	if c.WebhookURL == "" {
		return fmt.Errorf("%w: webhook_url must not be empty", ErrInvalid)
	}
	if c.PayloadBufferCap <= 0 {
		return fmt.Errorf("%w: payload_buffer_cap must be positive", ErrInvalid)
	}
	if c.RetryKeep > c.PayloadBufferCap {
		return fmt.Errorf("%w: retry_keep cannot exceed payload_buffer_cap", ErrInvalid)
	}
	if c.RageClickThreshold < 2 {
		return fmt.Errorf("%w: rage_click_threshold must be at least 2", ErrInvalid)
	}
	return nil
}
