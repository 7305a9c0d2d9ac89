// Package runner drives the batch jobs that move profiles through the
// outreach funnel: liking, comment generation, comment posting, post
// scraping, and cleanup. Each job takes a distributed lock so only one
// instance works a batch at a time, and paces its actions with
// randomized delays.
package runner

import (
	"context"
	"math/rand"
	"time"
)

// Config tunes batch sizes, pacing, and lock behavior shared by the
// runners.
type Config struct {
	// BatchLimit caps how many items one run processes.
	BatchLimit int
	// MinActionDelay and MaxActionDelay bound the randomized pause
	// between consecutive actions against the social API.
	MinActionDelay time.Duration
	MaxActionDelay time.Duration
	// LikeRecency restricts liking to posts newer than this.
	LikeRecency time.Duration
	// MaxLikesPerProfile caps likes per profile within one run.
	MaxLikesPerProfile int
	// LockTTL is how long a runner's distributed lock lives.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchLimit:         25,
		MinActionDelay:     5 * time.Second,
		MaxActionDelay:     25 * time.Second,
		LikeRecency:        21 * 24 * time.Hour,
		MaxLikesPerProfile: 3,
		LockTTL:            30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchLimit <= 0 {
		c.BatchLimit = d.BatchLimit
	}
	if c.MinActionDelay <= 0 {
		c.MinActionDelay = d.MinActionDelay
	}
	if c.MaxActionDelay < c.MinActionDelay {
		c.MaxActionDelay = c.MinActionDelay
	}
	if c.LikeRecency <= 0 {
		c.LikeRecency = d.LikeRecency
	}
	if c.MaxLikesPerProfile <= 0 {
		c.MaxLikesPerProfile = d.MaxLikesPerProfile
	}
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	return c
}

// pace sleeps a random duration within the configured bounds, returning
// early if the context is cancelled.
func pace(ctx context.Context, min, max time.Duration) error {
	delay := min
	if max > min {
		delay += time.Duration(rand.Int63n(int64(max - min)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
