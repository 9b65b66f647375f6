package calendarsync

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
)

const defaultSyncConcurrency = 4

// Syncer imports every enabled subscription. Each import is dispatched as its
// own command so it takes the property lock and its own unit of work;
// different properties import in parallel.
type Syncer struct {
	UoWFactory  uow.UoWFactory
	Commands    commands.Bus
	Concurrency int
	Logger      *slog.Logger
}

func (s *Syncer) Run(ctx context.Context) (dto.SyncSummary, error) {
	subs, err := s.enabled(ctx)
	if err != nil {
		return dto.SyncSummary{}, err
	}
	summary := dto.SyncSummary{Subscriptions: len(subs), Reports: make([]dto.ImportReport, 0, len(subs))}
	var mu sync.Mutex

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultSyncConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, sub := range subs {
		g.Go(func() error {
			report, err := commands.Dispatch[ImportCalendarCommand, *dto.ImportReport](gctx, s.Commands, ImportCalendarCommand{
				TenantID:       sub.TenantID,
				PropertyID:     sub.PropertyID,
				FeedURL:        sub.URL,
				SubscriptionID: sub.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				s.logger().WarnContext(gctx, "subscription sync failed",
					"tenant_id", sub.TenantID,
					"subscription_id", sub.ID,
					"error", err,
				)
				return nil
			}
			if report.FetchFailed || report.Error != "" {
				summary.Failed++
			}
			summary.Reports = append(summary.Reports, *report)
			return nil
		})
	}
	return summary, g.Wait()
}

func (s *Syncer) enabled(ctx context.Context) ([]*domain.Subscription, error) {
	unit, execCtx, err := uow.Start(ctx, s.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(execCtx)
	return unit.Subscriptions().ListEnabled(execCtx)
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
