package service

import (
	"context"
	"sync"
	"time"

	"github.com/mnemolab/revise/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval  = 1 * time.Hour
	defaultExpireInterval = 6 * time.Hour
	sweepTimeout          = 5 * time.Minute
)

// LifecycleSweeper periodically walks every tenant's superseded nodes,
// applies due state transitions, and logs deletion candidates.
type LifecycleSweeper struct {
	lifecycle *LifecycleService
	tenants   domain.TenantStore
	logger    *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewLifecycleSweeper(lifecycle *LifecycleService, tenants domain.TenantStore, logger *zap.Logger) *LifecycleSweeper {
	return &LifecycleSweeper{
		lifecycle: lifecycle,
		tenants:   tenants,
		logger:    logger,
		interval:  defaultSweepInterval,
		stopCh:    make(chan struct{}),
	}
}

func (s *LifecycleSweeper) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *LifecycleSweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("lifecycle sweeper started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
				s.RunSweep(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("lifecycle sweeper stopped")
				return
			}
		}
	}()
}

func (s *LifecycleSweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *LifecycleSweeper) RunSweep(ctx context.Context) {
	tenantIDs, err := s.tenants.ListIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list tenants for sweep", zap.Error(err))
		return
	}

	now := time.Now()
	for _, tenantID := range tenantIDs {
		transitions, deletable, err := s.lifecycle.SweepTenant(ctx, tenantID, now)
		if err != nil {
			s.logger.Error("lifecycle sweep failed for tenant",
				zap.String("tenant_id", tenantID.String()), zap.Error(err))
			continue
		}
		if len(transitions) > 0 || len(deletable) > 0 {
			s.logger.Info("lifecycle sweep complete for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("transitions", len(transitions)),
				zap.Int("deletion_candidates", len(deletable)))
		}
	}
}

// QueueExpirer periodically auto-resolves conflicts past their expiry.
type QueueExpirer struct {
	queue   *QueueService
	tenants domain.TenantStore
	logger  *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewQueueExpirer(queue *QueueService, tenants domain.TenantStore, logger *zap.Logger) *QueueExpirer {
	return &QueueExpirer{
		queue:    queue,
		tenants:  tenants,
		logger:   logger,
		interval: defaultExpireInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *QueueExpirer) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *QueueExpirer) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("queue expirer started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
				s.RunExpiry(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("queue expirer stopped")
				return
			}
		}
	}()
}

func (s *QueueExpirer) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *QueueExpirer) RunExpiry(ctx context.Context) {
	tenantIDs, err := s.tenants.ListIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list tenants for expiry", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		resolved, err := s.queue.ProcessExpired(ctx, tenantID)
		if err != nil {
			s.logger.Error("expiry sweep failed for tenant",
				zap.String("tenant_id", tenantID.String()), zap.Error(err))
			continue
		}
		if len(resolved) > 0 {
			s.logger.Info("expired conflicts auto-resolved",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("count", len(resolved)))
		}
	}
}
