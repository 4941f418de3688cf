// Package flash はカメラ撮影時のフラッシュLEDを制御する
package flash

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/zap"
)

// Driver はフラッシュLEDの点灯・消灯を行う
type Driver interface {
	On() error
	Off() error
	Close() error
}

// Config はフラッシュの設定
type Config struct {
	Enabled bool `yaml:"enabled"` // フラッシュを使うか
	Pin     int  `yaml:"pin"`     // GPIO番号 (BCM)
	Mock    bool `yaml:"mock"`    // 実機GPIOの代わりにモックを使う
}

// DefaultConfig はデフォルトのフラッシュ設定を返す（無効）
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Pin:     4,
		Mock:    true,
	}
}

// New は設定に応じたDriverを作成する
func New(cfg Config, logger *zap.Logger) (Driver, error) {
	logger = logger.With(zap.String("component", "flash"))

	if !cfg.Enabled {
		return Nop{}, nil
	}
	if cfg.Mock {
		logger.Info("モックのフラッシュドライバを使用します", zap.Int("pin", cfg.Pin))
		return NewMockDriver(), nil
	}
	return NewRPiDriver(cfg.Pin, logger)
}

// Nop は何もしないDriver
type Nop struct{}

func (Nop) On() error    { return nil }
func (Nop) Off() error   { return nil }
func (Nop) Close() error { return nil }

// RPiDriver はgo-rpioでRaspberry PiのGPIOを駆動する
type RPiDriver struct {
	pin    rpio.Pin
	logger *zap.Logger
}

// NewRPiDriver はGPIOをメモリマップしてピンを出力に設定する
// /dev/gpiomem へのアクセス権限が必要
func NewRPiDriver(pin int, logger *zap.Logger) (*RPiDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("GPIOのオープンに失敗: %w (Raspberry Pi上で実行していますか?)", err)
	}

	p := rpio.Pin(pin)
	p.Output()
	p.Low()

	logger.Info("フラッシュGPIOを初期化しました", zap.Int("pin", pin))
	return &RPiDriver{pin: p, logger: logger}, nil
}

// On はフラッシュを点灯する
func (r *RPiDriver) On() error {
	r.pin.High()
	return nil
}

// Off はフラッシュを消灯する
func (r *RPiDriver) Off() error {
	r.pin.Low()
	return nil
}

// Close はピンを安全な状態（入力）に戻してGPIOを閉じる
func (r *RPiDriver) Close() error {
	r.pin.Low()
	r.pin.Input()
	return rpio.Close()
}

// MockDriver はテスト・開発用のDriver。点灯回数を記録する
type MockDriver struct {
	mu       sync.Mutex
	lit      bool
	flashes  int
	failNext bool
}

// NewMockDriver は新しいMockDriverを作成する
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (m *MockDriver) On() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return fmt.Errorf("モック: フラッシュ点灯に失敗")
	}
	m.lit = true
	m.flashes++
	return nil
}

func (m *MockDriver) Off() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lit = false
	return nil
}

func (m *MockDriver) Close() error {
	return m.Off()
}

// Lit は現在点灯中かを返す
func (m *MockDriver) Lit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lit
}

// Flashes は点灯した回数を返す
func (m *MockDriver) Flashes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flashes
}

// SetFailNext は次のOnを失敗させる
func (m *MockDriver) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}
