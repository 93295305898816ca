// Package errs 定义跨层使用的哨兵错误。
// 传输层用 errors.Is 将它们映射为 HTTP 状态码。
package errs

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrTimeout 表示外部调用超时，可重试。
	// 与“查询返回 0 行”是两种不同的结果，调用方不得混淆。
	ErrTimeout = errors.New("request timeout")
	// ErrSuperseded 表示查询已被同一视图更新的请求取代，结果应丢弃。
	ErrSuperseded = errors.New("request superseded")
)

// Invalidf 构造带说明的 ErrInvalidInput。
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// FromContext 将 context 取消/超时归一化：
// - DeadlineExceeded -> ErrTimeout
// - Canceled         -> ErrSuperseded（仅在请求被新请求取代时取消）
func FromContext(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSuperseded, err)
	}
	return err
}

// Retryable 判断错误是否值得调用方重试。
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
