package runner

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/appctx"
	"github.com/Ramsey-B/fern/pkg/funnel"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CleanupReport summarizes one cleanup run.
type CleanupReport struct {
	ProfilesMoved int `json:"profiles_moved"`
}

// Cleaner sweeps commenting-phase profiles that never produced an
// approved comment out of the commenting stage.
type Cleaner struct {
	funnel *funnel.Controller
	locker Locker
	config Config
	logger ectologger.Logger
}

func NewCleaner(controller *funnel.Controller, locker Locker, config Config, logger ectologger.Logger) *Cleaner {
	return &Cleaner{
		funnel: controller,
		locker: locker,
		config: config.withDefaults(),
		logger: logger,
	}
}

// Run performs one cleanup sweep under a distributed lock.
func (c *Cleaner) Run(ctx context.Context) (*CleanupReport, error) {
	report := &CleanupReport{}
	err := c.locker.WithLock(ctx, "cleanup", c.config.LockTTL, func() error {
		ctx := appctx.SetRunID(ctx, uuid.NewString())
		ctx, span := tracing.StartSpan(ctx, "runner.Cleaner.Run")
		defer span.End()

		moved, err := c.funnel.Cleanup(ctx)
		if err != nil {
			return err
		}
		report.ProfilesMoved = moved
		c.logger.WithContext(ctx).WithFields(map[string]any{"profiles_moved": moved}).Info("Cleanup run completed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
