// Package errreport 把服务端错误上报到 Sentry。未调用 Init 或 DSN 为空时所有函数都是空操作。
package errreport

import (
	"context"
	"fmt"
	"time"

	"image-review/internal/config"

	"github.com/getsentry/sentry-go"
)

// Init 初始化 Sentry 客户端。
func Init(cfg config.SentryConfig, release string) error {
	if cfg.DSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          "image-review@" + release,
		SampleRate:       1.0,
		AttachStacktrace: true,
		// 不上报请求体与用户信息
		SendDefaultPII: false,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

// Capture 上报一个错误，op 作为标签，便于按接口聚合。
func Capture(_ context.Context, op string, err error) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
	})
	hub.CaptureException(err)
}

// Recover 上报一次被 recover 的 panic。
func Recover(op string, recovered interface{}) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
	})
	hub.Recover(recovered)
}

// Flush 在退出前等待未发送的事件。
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
