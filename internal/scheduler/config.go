package scheduler

import (
	"errors"
	"time"

	"github.com/smallbiznis/pulse/internal/config"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const (
	JobDailySnapshot = "daily_snapshot"
	JobProductivity  = "productivity"
)

// Config controls the in-process trigger loop and per-job deadlines.
type Config struct {
	InternalEnabled     bool
	RunInterval         time.Duration
	SnapshotTimeout     time.Duration
	ProductivityTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:         time.Hour,
		SnapshotTimeout:     5 * time.Minute,
		ProductivityTimeout: 30 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		InternalEnabled: cfg.Scheduler.InternalEnabled,
		RunInterval:     cfg.Scheduler.RunInterval,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = defaults.SnapshotTimeout
	}
	if c.ProductivityTimeout <= 0 {
		c.ProductivityTimeout = defaults.ProductivityTimeout
	}
	return c
}
