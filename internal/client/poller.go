package client

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Poller 后台轮询刷新器。
//
// 约束：同一时刻最多一次刷新在途。到点时上一轮还没回来就跳过本轮，
// 防止慢网络下请求堆积。Stop 或 ctx 取消后不再发起新刷新。
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	logger   *zap.Logger

	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller 创建轮询器；refresh 为每轮执行的刷新动作
func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, logger *zap.Logger) *Poller {
	return &Poller{
		interval: interval,
		refresh:  refresh,
		logger:   logger,
	}
}

// Start 启动轮询。立即执行一次，然后按间隔循环。
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		p.tick(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop 停止轮询并等待在途刷新结束
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}
}

func (p *Poller) tick(ctx context.Context) {
	// 在途保护：上一轮未结束则跳过
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("上一轮刷新未完成，跳过本轮")
		return
	}
	defer p.inFlight.Store(false)

	if err := p.refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// 刷新失败不中断轮询，下一轮重试
		p.logger.Warn("轮询刷新失败", zap.Error(err))
	}
}
