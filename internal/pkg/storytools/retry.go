package storytools

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy 有界重试策略
// 对 LLM / 文生图 / TTS 等上游调用统一生效
type RetryPolicy struct {
	MaxAttempts int           // 总尝试次数（含首次）
	Interval    time.Duration // 相邻两次尝试之间的固定等待
}

// DefaultRetryPolicy 默认重试策略：3 次尝试，间隔 800ms
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Interval:    800 * time.Millisecond,
}

// Do 按策略执行 op，直到成功、尝试耗尽或上下文取消
// 全部失败时返回最后一次的错误；上下文取消时返回包含 ctx.Err() 的错误
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-time.After(p.Interval):
		}
	}

	return lastErr
}
