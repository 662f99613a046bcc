package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/internal/pkg/metrics"
	"github.com/qs3c/redact_go_server/internal/pkg/queue"
	"github.com/qs3c/redact_go_server/internal/service"
)

// 任务结果
const (
	ResultPaid     = "paid"
	ResultAlready  = "already_processed"
	ResultNotFound = "not_found"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// Reconciler 对单个账户执行一次到账对账
type Reconciler interface {
	Reconcile(ctx context.Context, accountID, txidHint string) (*service.ReconcileResult, error)
}

// Processor 同步任务处理器
type Processor struct {
	reconciler Reconciler
	timeout    time.Duration
}

// NewProcessor 创建任务处理器，timeout 限制单个任务的执行时间
func NewProcessor(reconciler Reconciler, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Processor{
		reconciler: reconciler,
		timeout:    timeout,
	}
}

// Process 处理一条对账任务，返回结果标签
func (p *Processor) Process(ctx context.Context, msg *queue.SyncMessage) (string, error) {
	if msg == nil || msg.AccountID == "" {
		metrics.SyncJobs.WithLabelValues("unknown", ResultSkipped).Inc()
		return ResultSkipped, nil
	}

	source := msg.Source
	if source == "" {
		source = "unknown"
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.reconciler.Reconcile(ctx, msg.AccountID, msg.TxID)
	if err != nil {
		// 地址已被清理或从未分配，重试没有意义
		if errors.Is(err, service.ErrNoDepositAddress) {
			metrics.SyncJobs.WithLabelValues(source, ResultSkipped).Inc()
			return ResultSkipped, nil
		}
		metrics.SyncJobs.WithLabelValues(source, ResultFailed).Inc()
		return ResultFailed, fmt.Errorf("reconcile %s: %w", msg.AccountID, err)
	}

	result := ResultNotFound
	switch {
	case res.Processed:
		result = ResultPaid
	case res.Paid:
		result = ResultAlready
	}
	metrics.SyncJobs.WithLabelValues(source, result).Inc()

	if res.Processed {
		log.Info().
			Str("account_id", msg.AccountID).
			Str("txid", res.TxID).
			Str("source", source).
			Msg("payment synced")
	}
	return result, nil
}
