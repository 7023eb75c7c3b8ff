package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/estatedesk/backend/internal/db"
	"github.com/estatedesk/backend/internal/service"
)

// Scheduler periodically runs the maintenance engine for every known
// organization. One run materializes missing tasks and converts whatever
// is due; the engine is idempotent between runs, so the interval is an
// operational choice, not a correctness one.
type Scheduler struct {
	Store    *db.Store
	Engine   *service.Engine
	Logger   zerolog.Logger
	Interval time.Duration
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval < time.Minute {
		interval = time.Minute
	}

	s.Logger.Info().Dur("interval", interval).Msg("scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	orgs, err := s.Store.ListOrganizations(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("failed to list organizations")
		return
	}

	for _, orgID := range orgs {
		if err := s.runOrg(ctx, orgID); err != nil {
			s.Logger.Error().Err(err).Str("org_id", orgID).Msg("engine run failed")
		}
	}
}

func (s *Scheduler) runOrg(ctx context.Context, orgID string) error {
	return s.Store.WithOrgLock(ctx, orgID, func() error {
		materialized, err := s.Engine.GenerateMaintenanceTasks(ctx, orgID)
		if err != nil {
			return err
		}
		processed, err := s.Engine.ProcessDueMaintenanceTasks(ctx, orgID, "scheduler")
		if err != nil {
			return err
		}
		s.Logger.Info().
			Str("org_id", orgID).
			Int("tasks_created", materialized.Created).
			Int("work_orders_created", processed.WorkOrdersCreated).
			Msg("scheduled engine run complete")
		return nil
	})
}
