package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	robfig "github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/pkg/queue"
)

const (
	sweepLockKey    = "lock:payment_sweep"
	sweepLockExpiry = 4 * time.Minute
	sweepTimeout    = 3 * time.Minute
)

// ErrSweepLocked 其他 worker 正在执行扫描
var ErrSweepLocked = errors.New("payment sweep already running")

// AccountLister 列出已分配充值地址的账户
type AccountLister interface {
	ListWithDepositAddress(ctx context.Context, limit int) ([]model.Account, error)
}

// GrantFinisher 补发已确认未发放的额度
type GrantFinisher interface {
	FinishPendingGrants(ctx context.Context, limit int) (int, error)
}

// SyncQueue 对账任务队列
type SyncQueue interface {
	Push(ctx context.Context, msg *queue.SyncMessage) error
}

// SweepResult 一次扫描的结果
type SweepResult struct {
	Enqueued int
	Finished int
}

// Service 周期性扫描充值地址，把对账任务投递给 worker
type Service struct {
	accounts  AccountLister
	grants    GrantFinisher
	syncQueue SyncQueue
	locker    *redsync.Redsync
	spec      string
	batch     int
	scheduler *robfig.Cron
}

func NewService(
	accounts AccountLister,
	grants GrantFinisher,
	syncQueue SyncQueue,
	locker *redsync.Redsync,
	cfg config.WorkerConfig,
) *Service {
	batch := cfg.SweepBatch
	if batch <= 0 {
		batch = 200
	}
	return &Service{
		accounts:  accounts,
		grants:    grants,
		syncQueue: syncQueue,
		locker:    locker,
		spec:      cfg.SweepSpec,
		batch:     batch,
		scheduler: robfig.New(robfig.WithSeconds()),
	}
}

// Start 启动定时任务
func (s *Service) Start() error {
	if s.spec == "" {
		log.Info().Msg("payment sweep disabled")
		return nil
	}
	_, err := s.scheduler.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		res, err := s.RunNow(ctx)
		if errors.Is(err, ErrSweepLocked) {
			log.Debug().Msg("payment sweep skipped, lock held elsewhere")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("payment sweep failed")
			return
		}
		log.Info().Int("enqueued", res.Enqueued).Int("finished", res.Finished).Msg("payment sweep done")
	})
	if err != nil {
		return fmt.Errorf("invalid sweep spec %q: %w", s.spec, err)
	}

	s.scheduler.Start()
	log.Info().Str("spec", s.spec).Int("batch", s.batch).Msg("payment sweep started")
	return nil
}

// Stop 停止定时任务，等待正在执行的扫描结束
func (s *Service) Stop() {
	<-s.scheduler.Stop().Done()
	log.Info().Msg("payment sweep stopped")
}

// RunNow 立即执行一次扫描：补发未完成的额度，再为每个充值地址投递对账任务
func (s *Service) RunNow(ctx context.Context) (*SweepResult, error) {
	if s.locker != nil {
		mutex := s.locker.NewMutex(sweepLockKey, redsync.WithExpiry(sweepLockExpiry), redsync.WithTries(1))
		if err := mutex.LockContext(ctx); err != nil {
			return nil, ErrSweepLocked
		}
		defer func() {
			if ok, err := mutex.UnlockContext(context.Background()); !ok || err != nil {
				log.Warn().Err(err).Msg("release sweep lock failed")
			}
		}()
	}

	res := &SweepResult{}

	finished, err := s.grants.FinishPendingGrants(ctx, s.batch)
	if err != nil {
		return nil, fmt.Errorf("finish pending grants: %w", err)
	}
	res.Finished = finished

	accounts, err := s.accounts.ListWithDepositAddress(ctx, s.batch)
	if err != nil {
		return nil, fmt.Errorf("list deposit accounts: %w", err)
	}

	for _, a := range accounts {
		msg := &queue.SyncMessage{AccountID: a.ID, Source: queue.SourceSweep}
		if err := s.syncQueue.Push(ctx, msg); err != nil {
			return res, fmt.Errorf("enqueue %s: %w", a.ID, err)
		}
		res.Enqueued++
	}
	return res, nil
}
