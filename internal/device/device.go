// Package device はカメラ・ストレージ・フラッシュをまとめたデバイスコンテキストを提供する
//
// 各HTTPハンドラはこのコンテキストを経由してハードウェアにアクセスする。
// センサーを使う処理（撮影・スナップショット・死活確認）は1つずつ直列に実行される。
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fotocam/internal/camera"
	"fotocam/internal/flash"
	"fotocam/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gallery は撮影画像の保存先
type Gallery interface {
	Available() bool
	Save(name string, data []byte) (string, error)
}

// Options はDeviceの構成要素
type Options struct {
	Camera  *camera.Device
	Encoder camera.Encoder
	Gallery Gallery
	Flash   flash.Driver   // nilならフラッシュなし
	Namer   *storage.Namer // nilならClockから作成
	Clock   storage.Clock  // nilなら起動時刻基準
	Logger  *zap.Logger
}

// Status はデバイスの状態
type Status struct {
	CameraInitialized bool
	StorageAvailable  bool
	Format            string
	Resolution        string
	FreeMemory        uint64
	ExtendedRAM       bool
	LastPath          string
	BootID            string
	Uptime            time.Duration
}

// Device はリクエストハンドラに渡されるデバイスコンテキスト
type Device struct {
	camera  *camera.Device
	encoder camera.Encoder
	gallery Gallery
	flash   flash.Driver
	namer   *storage.Namer
	clock   storage.Clock
	logger  *zap.Logger
	bootID  string

	// センサーを使う処理の直列化
	hw sync.Mutex

	lastMu   sync.RWMutex
	lastPath string
}

// New は新しいDeviceを作成する
func New(opts Options) *Device {
	clock := opts.Clock
	if clock == nil {
		clock = storage.NewBootClock()
	}
	namer := opts.Namer
	if namer == nil {
		namer = storage.NewNamer("foto_", clock)
	}
	fl := opts.Flash
	if fl == nil {
		fl = flash.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Device{
		camera:  opts.Camera,
		encoder: opts.Encoder,
		gallery: opts.Gallery,
		flash:   fl,
		namer:   namer,
		clock:   clock,
		logger:  logger.With(zap.String("component", "device")),
		bootID:  uuid.New().String(),
	}
}

// Capture は1枚撮影して保存し、ファイル名を返す
//
// フレームはJPEG変換直後に、JPEGバッファは保存の成否にかかわらず返却される。
func (d *Device) Capture(ctx context.Context) (string, error) {
	d.logger.Info("写真を撮影しています")

	img, err := d.grab(ctx, true)
	if err != nil {
		return "", err
	}
	defer img.Release()

	name := d.namer.Next()
	path, err := d.gallery.Save(name, img.Bytes())
	if err != nil {
		d.logger.Error("画像の保存に失敗しました", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("画像の保存に失敗: %w", err)
	}

	d.lastMu.Lock()
	d.lastPath = path
	d.lastMu.Unlock()

	return name, nil
}

// Snapshot は1枚撮影してJPEGを返す。呼び出し側がReleaseする
func (d *Device) Snapshot(ctx context.Context) (*camera.JPEG, error) {
	return d.grab(ctx, false)
}

// Probe はフレームを取得して捨てる。カメラ未初期化ならErrNotInitializedを返す
func (d *Device) Probe(ctx context.Context) error {
	d.hw.Lock()
	defer d.hw.Unlock()

	return d.camera.Probe(ctx)
}

// CameraInitialized はカメラが初期化済みかを返す
func (d *Device) CameraInitialized() bool {
	return d.camera.Initialized()
}

// StorageAvailable はストレージが利用可能かを返す
func (d *Device) StorageAvailable() bool {
	return d.gallery.Available()
}

// LastPath は最後に保存した画像のパスを返す
func (d *Device) LastPath() string {
	d.lastMu.RLock()
	defer d.lastMu.RUnlock()
	return d.lastPath
}

// Status は現在の状態を返す。副作用はない
func (d *Device) Status() Status {
	cfg := d.camera.Config()
	mem := readMemInfo()

	return Status{
		CameraInitialized: d.camera.Initialized(),
		StorageAvailable:  d.gallery.Available(),
		Format:            string(cfg.PixelFormat),
		Resolution:        cfg.Resolution().String(),
		FreeMemory:        mem.Free,
		ExtendedRAM:       mem.Swap,
		LastPath:          d.LastPath(),
		BootID:            d.bootID,
		Uptime:            d.clock.Uptime(),
	}
}

// grab はフレームを取得してJPEGに変換する
func (d *Device) grab(ctx context.Context, withFlash bool) (*camera.JPEG, error) {
	d.hw.Lock()
	defer d.hw.Unlock()

	if !d.camera.Initialized() {
		return nil, camera.ErrNotInitialized
	}

	if withFlash {
		if err := d.flash.On(); err != nil {
			d.logger.Warn("フラッシュの点灯に失敗しました", zap.Error(err))
		} else {
			defer func() {
				if err := d.flash.Off(); err != nil {
					d.logger.Warn("フラッシュの消灯に失敗しました", zap.Error(err))
				}
			}()
		}
	}

	var img *camera.JPEG
	err := d.camera.WithFrame(ctx, func(f *camera.Frame) error {
		var err error
		img, err = d.encoder.Encode(f)
		return err
	})
	if err != nil {
		d.logger.Error("画像の取得に失敗しました", zap.Error(err))
		return nil, err
	}
	return img, nil
}
