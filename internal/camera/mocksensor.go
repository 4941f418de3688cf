package camera

import (
	"context"
	"fmt"
	"sync"
)

// MockSensor はテスト用のモックセンサー実装
type MockSensor struct {
	mu     sync.Mutex
	config Config

	initCalls int
	reads     int

	// テスト制御用
	shouldFailInit bool
	shouldFailRead bool
	shortRead      bool
}

// NewMockSensor は新しいMockSensorを作成する
func NewMockSensor() *MockSensor {
	return &MockSensor{}
}

// Init はモックセンサーを初期化する
func (m *MockSensor) Init(_ context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initCalls++
	if m.shouldFailInit {
		return fmt.Errorf("モック: センサー初期化に失敗")
	}
	m.config = cfg
	return nil
}

// ReadFrame は中間色で塗りつぶしたフレームを返す
func (m *MockSensor) ReadFrame(_ context.Context, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.shouldFailRead {
		return 0, fmt.Errorf("モック: フレーム取得に失敗")
	}

	n := m.config.FrameBytes()
	if m.shortRead {
		n /= 2
	}
	for i := 0; i < n; i++ {
		buf[i] = 0x84
	}
	return n, nil
}

// Close は何もしない
func (m *MockSensor) Close() error {
	return nil
}

// InitCalls はInitが呼ばれた回数を返す
func (m *MockSensor) InitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls
}

// Reads はReadFrameが呼ばれた回数を返す
func (m *MockSensor) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// SetShouldFailInit はテスト用にInit失敗を設定する
func (m *MockSensor) SetShouldFailInit(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailInit = shouldFail
}

// SetShouldFailRead はテスト用にReadFrame失敗を設定する
func (m *MockSensor) SetShouldFailRead(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailRead = shouldFail
}

// SetShortRead はテスト用に不完全なフレームを返すよう設定する
func (m *MockSensor) SetShortRead(short bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortRead = short
}
