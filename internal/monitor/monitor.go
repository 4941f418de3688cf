// Package monitor はカメラの死活確認を定期的に行う
//
// 確認は診断目的のみで、失敗してもログに残すだけで復旧や再起動は行わない。
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval はデフォルトの確認間隔
const DefaultInterval = 30 * time.Second

// Prober はカメラからフレームを取得して捨てる
type Prober interface {
	CameraInitialized() bool
	Probe(ctx context.Context) error
}

// Monitor はカメラの死活確認を行う
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *zap.Logger
}

// New は新しいMonitorを作成する
func New(prober Prober, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		logger:   logger.With(zap.String("component", "monitor")),
	}
}

// Run はctxがキャンセルされるまで定期的にCheckを実行する
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("カメラの死活監視を開始します", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.Check(ctx)
		}
	}
}

// Check は1回だけ死活確認を行う。カメラ未初期化なら何もしない
func (m *Monitor) Check(ctx context.Context) error {
	if !m.prober.CameraInitialized() {
		return nil
	}

	if err := m.prober.Probe(ctx); err != nil {
		m.logger.Warn("カメラが応答しません。再起動が必要な可能性があります", zap.Error(err))
		return err
	}
	return nil
}
