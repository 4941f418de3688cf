package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Frame はセンサーから取得した1フレーム分の生データ
//
// Frameはフレームプールが所有しており、WithFrameのコールバック内でのみ有効
type Frame struct {
	Data      []byte      // 有効な画素データ
	Width     int         // 画像幅
	Height    int         // 画像高さ
	Format    PixelFormat // 画素フォーマット
	Timestamp time.Time   // 取得時刻

	buf   []byte
	home  chan *Frame // 取り出し元のプール
	inUse atomic.Bool
}

// Device はセンサーの初期化状態と固定長フレームプールを管理する
type Device struct {
	sensor Sensor
	config Config
	logger *zap.Logger

	mu          sync.Mutex // Init/Closeの直列化
	initialized atomic.Bool
	pool        chan *Frame
	outstanding atomic.Int32
}

// NewDevice は新しいDeviceを作成する。センサーの初期化はInitで行う
func NewDevice(sensor Sensor, cfg Config, logger *zap.Logger) *Device {
	return &Device{
		sensor: sensor,
		config: cfg,
		logger: logger.With(zap.String("component", "camera")),
	}
}

// Init はセンサーを一度だけ初期化する。初期化済みなら何もせず成功を返す
func (d *Device) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("カメラを初期化しています",
		zap.String("sensor", d.config.Sensor),
		zap.String("pixel_format", string(d.config.PixelFormat)),
		zap.String("frame_size", string(d.config.FrameSize)))

	if d.initialized.Load() {
		d.logger.Warn("カメラは既に初期化されています")
		return nil
	}

	if err := d.config.Validate(); err != nil {
		return fmt.Errorf("カメラ設定が無効: %w", err)
	}

	if err := d.sensor.Init(ctx, d.config); err != nil {
		d.logger.Error("カメラの初期化に失敗しました", zap.Error(err))
		return fmt.Errorf("カメラの初期化に失敗: %w", err)
	}

	res := d.config.Resolution()
	size := d.config.FrameBytes()
	pool := make(chan *Frame, d.config.FBCount)
	for i := 0; i < d.config.FBCount; i++ {
		pool <- &Frame{
			Width:  res.Width,
			Height: res.Height,
			Format: d.config.PixelFormat,
			buf:    make([]byte, size),
			home:   pool,
		}
	}
	d.pool = pool

	d.initialized.Store(true)
	d.logger.Info("カメラを初期化しました",
		zap.String("resolution", res.String()),
		zap.Int("fb_count", d.config.FBCount))
	return nil
}

// Initialized はカメラが初期化済みかを返す
func (d *Device) Initialized() bool {
	return d.initialized.Load()
}

// Config は現在のカメラ設定を返す
func (d *Device) Config() Config {
	return d.config
}

// Outstanding は返却されていないフレーム数を返す
func (d *Device) Outstanding() int {
	return int(d.outstanding.Load())
}

// WithFrame は1フレームを取得してfnに渡し、fnの結果にかかわらずフレームを返却する
func (d *Device) WithFrame(ctx context.Context, fn func(*Frame) error) error {
	f, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer d.release(f)

	return fn(f)
}

// Probe はフレームを取得してすぐに捨てる。センサーの応答確認に使う
func (d *Device) Probe(ctx context.Context) error {
	return d.WithFrame(ctx, func(*Frame) error { return nil })
}

// Close はセンサーを解放して未初期化状態に戻す
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized.Load() {
		return nil
	}
	d.initialized.Store(false)

	if err := d.sensor.Close(); err != nil {
		return fmt.Errorf("センサーの解放に失敗: %w", err)
	}
	return nil
}

// acquire はプールからフレームを取り出してセンサーのデータで埋める
func (d *Device) acquire(ctx context.Context) (*Frame, error) {
	if !d.initialized.Load() {
		return nil, ErrNotInitialized
	}

	var f *Frame
	select {
	case f = <-d.pool:
	default:
		return nil, ErrNoFreeBuffer
	}
	f.inUse.Store(true)
	d.outstanding.Add(1)

	n, err := d.sensor.ReadFrame(ctx, f.buf)
	if err != nil {
		d.release(f)
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if n != len(f.buf) {
		d.release(f)
		return nil, fmt.Errorf("%w: 不完全なフレーム (%d/%d バイト)", ErrCapture, n, len(f.buf))
	}

	f.Data = f.buf[:n]
	f.Timestamp = time.Now()
	return f, nil
}

// release はフレームを取り出し元のプールに戻す。二重返却は無視する
// Close後の再Initをまたいだフレームは古いプールに戻るだけで、新しいプールには混ざらない
func (d *Device) release(f *Frame) {
	if !f.inUse.CompareAndSwap(true, false) {
		return
	}
	f.Data = nil
	d.outstanding.Add(-1)
	select {
	case f.home <- f:
	default:
	}
}
