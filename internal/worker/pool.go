package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// JobSource 阻塞读取对账任务，超时返回 nil
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.SyncMessage, error)
}

// Pool 多个 goroutine 并发消费队列
type Pool struct {
	source    JobSource
	processor *Processor
	size      int
	wg        sync.WaitGroup
}

func NewPool(source JobSource, processor *Processor, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		source:    source,
		processor: processor,
		size:      size,
	}
}

// Start 启动 worker 循环，ctx 取消后退出
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	log.Info().Int("workers", p.size).Msg("sync workers started")
}

// Wait 等待所有 worker 退出
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker", workerID).Msg("worker shutting down")
			return
		default:
		}

		msg, err := p.source.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Int("worker", workerID).Msg("pop sync job failed")
			// 避免 redis 不可用时空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			continue
		}

		result, err := p.processor.Process(ctx, msg)
		if err != nil {
			log.Error().Err(err).Int("worker", workerID).Str("account_id", msg.AccountID).Msg("sync job failed")
			continue
		}
		log.Debug().Int("worker", workerID).Str("account_id", msg.AccountID).Str("result", result).Msg("sync job done")
	}
}
