package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotInitialized はカメラが未初期化の状態で操作されたことを表す
	ErrNotInitialized = errors.New("camera not initialized")
	// ErrCapture はセンサーからフレームを取得できなかったことを表す
	ErrCapture = errors.New("frame capture failed")
	// ErrEncode はJPEG変換に失敗したことを表す
	ErrEncode = errors.New("jpeg encode failed")
	// ErrNoFreeBuffer はフレームバッファプールが枯渇していることを表す
	ErrNoFreeBuffer = errors.New("no free frame buffer")
)

// PixelFormat はセンサーの出力画素フォーマット
type PixelFormat string

const (
	PixelFormatRGB565    PixelFormat = "RGB565"
	PixelFormatGrayscale PixelFormat = "GRAYSCALE"
)

// BytesPerPixel は1画素あたりのバイト数を返す
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatRGB565:
		return 2
	case PixelFormatGrayscale:
		return 1
	default:
		return 0
	}
}

// FrameSize はセンサーの解像度プリセット名
type FrameSize string

var frameSizes = map[FrameSize]Resolution{
	"QQVGA": {Width: 160, Height: 120},
	"QCIF":  {Width: 176, Height: 144},
	"HQVGA": {Width: 240, Height: 176},
	"QVGA":  {Width: 320, Height: 240},
	"CIF":   {Width: 400, Height: 296},
	"VGA":   {Width: 640, Height: 480},
	"SVGA":  {Width: 800, Height: 600},
	"XGA":   {Width: 1024, Height: 768},
	"SXGA":  {Width: 1280, Height: 1024},
	"UXGA":  {Width: 1600, Height: 1200},
}

// Resolution は解像度を表す
type Resolution struct {
	Width  int
	Height int
}

// String は "320x240" 形式の文字列を返す
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Resolution はプリセット名に対応する解像度を返す
func (f FrameSize) Resolution() (Resolution, bool) {
	r, ok := frameSizes[FrameSize(strings.ToUpper(string(f)))]
	return r, ok
}

// Pins はカメラモジュールのピン配置（-1は未接続）
type Pins struct {
	PWDN  int    `yaml:"pwdn"`
	Reset int    `yaml:"reset"`
	XCLK  int    `yaml:"xclk"`
	SIOD  int    `yaml:"siod"`
	SIOC  int    `yaml:"sioc"`
	D     [8]int `yaml:"d"` // Y2..Y9
	VSYNC int    `yaml:"vsync"`
	HREF  int    `yaml:"href"`
	PCLK  int    `yaml:"pclk"`
}

// DefaultPins はAI-Thinker ESP32-CAMのピン配置を返す
func DefaultPins() Pins {
	return Pins{
		PWDN:  32,
		Reset: -1,
		XCLK:  0,
		SIOD:  26,
		SIOC:  27,
		D:     [8]int{5, 18, 19, 21, 36, 39, 34, 35},
		VSYNC: 25,
		HREF:  23,
		PCLK:  22,
	}
}

// Validate は接続済みピンに重複がないか確認する
func (p Pins) Validate() error {
	seen := make(map[int]string)
	check := func(name string, pin int) error {
		if pin < 0 {
			return nil
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("ピン %d が %s と %s で重複しています", pin, other, name)
		}
		seen[pin] = name
		return nil
	}

	named := []struct {
		name string
		pin  int
	}{
		{"pwdn", p.PWDN}, {"reset", p.Reset}, {"xclk", p.XCLK},
		{"siod", p.SIOD}, {"sioc", p.SIOC}, {"vsync", p.VSYNC},
		{"href", p.HREF}, {"pclk", p.PCLK},
	}
	for i, pin := range p.D {
		named = append(named, struct {
			name string
			pin  int
		}{fmt.Sprintf("d%d", i), pin})
	}
	for _, n := range named {
		if err := check(n.name, n.pin); err != nil {
			return err
		}
	}
	return nil
}

// Config はセンサーとエンコーダーの設定
type Config struct {
	Sensor        string      `yaml:"sensor"`         // "v4l2" / "pattern"
	Device        string      `yaml:"device"`         // デバイスパス (例: /dev/video0)
	PixelFormat   PixelFormat `yaml:"pixel_format"`   // 画素フォーマット
	FrameSize     FrameSize   `yaml:"frame_size"`     // 解像度プリセット
	XCLKFreqHz    int         `yaml:"xclk_freq_hz"`   // センサークロック
	JPEGQuality   int         `yaml:"jpeg_quality"`   // センサー側JPEG品質 (0-63, 小さいほど高品質)
	FBCount       int         `yaml:"fb_count"`       // フレームバッファ数
	Pins          Pins        `yaml:"pins"`           // ピン配置
	EncodeQuality int         `yaml:"encode_quality"` // 変換時のJPEG品質 (1-100)
	Overlay       bool        `yaml:"overlay"`        // 撮影時刻を画像に描画する
}

// DefaultConfig はデフォルトのカメラ設定を返す
func DefaultConfig() Config {
	return Config{
		Sensor:        "pattern",
		Device:        "/dev/video0",
		PixelFormat:   PixelFormatRGB565,
		FrameSize:     "QVGA",
		XCLKFreqHz:    20000000,
		JPEGQuality:   12,
		FBCount:       2,
		Pins:          DefaultPins(),
		EncodeQuality: 80,
	}
}

// Validate は設定値の妥当性を検証する
func (c Config) Validate() error {
	if c.PixelFormat.BytesPerPixel() == 0 {
		return fmt.Errorf("サポートされていない画素フォーマット: %s", c.PixelFormat)
	}
	if _, ok := c.FrameSize.Resolution(); !ok {
		return fmt.Errorf("無効なフレームサイズ: %s", c.FrameSize)
	}
	if c.XCLKFreqHz <= 0 {
		return fmt.Errorf("無効なクロック周波数: %d", c.XCLKFreqHz)
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 63 {
		return fmt.Errorf("無効なセンサーJPEG品質: %d", c.JPEGQuality)
	}
	if c.FBCount < 1 {
		return fmt.Errorf("無効なフレームバッファ数: %d", c.FBCount)
	}
	if c.EncodeQuality < 1 || c.EncodeQuality > 100 {
		return fmt.Errorf("無効なJPEG品質: %d", c.EncodeQuality)
	}
	return c.Pins.Validate()
}

// Resolution は設定された解像度を返す。検証済みの設定を前提とする
func (c Config) Resolution() Resolution {
	r, _ := c.FrameSize.Resolution()
	return r
}

// FrameBytes は1フレームのバイト数を返す
func (c Config) FrameBytes() int {
	r := c.Resolution()
	return r.Width * r.Height * c.PixelFormat.BytesPerPixel()
}

// Sensor はカメラセンサードライバのファサード
type Sensor interface {
	// Init はセンサーを設定して初期化する
	Init(ctx context.Context, cfg Config) error

	// ReadFrame は1フレーム分の生データをbufに書き込み、書き込んだバイト数を返す
	ReadFrame(ctx context.Context, buf []byte) (int, error)

	// Close はセンサーを解放する
	Close() error
}
