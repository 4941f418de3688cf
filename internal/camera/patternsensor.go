package camera

import (
	"context"
	"fmt"
	"sync"
)

// PatternSensor は実機カメラのないホスト向けに動くテストパターンを生成する
type PatternSensor struct {
	mu     sync.Mutex
	config Config
	tick   int
}

// NewPatternSensor は新しいPatternSensorを作成する
func NewPatternSensor() *PatternSensor {
	return &PatternSensor{}
}

// Init は設定を保持する
func (p *PatternSensor) Init(_ context.Context, cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
	return nil
}

// ReadFrame は呼び出しごとに1画素ずつずれるグラデーションを書き込む
func (p *PatternSensor) ReadFrame(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.config.Resolution()
	bpp := p.config.PixelFormat.BytesPerPixel()
	size := res.Width * res.Height * bpp
	if size == 0 {
		return 0, fmt.Errorf("センサーが初期化されていません")
	}
	if len(buf) < size {
		return 0, fmt.Errorf("バッファが小さすぎます: %d < %d", len(buf), size)
	}

	p.tick++
	for y := 0; y < res.Height; y++ {
		for x := 0; x < res.Width; x++ {
			off := (y*res.Width + x) * bpp
			r := uint16((x + p.tick) * 31 / res.Width % 32)
			g := uint16(y * 63 / res.Height)
			b := uint16((res.Width - x) * 31 / res.Width)
			switch p.config.PixelFormat {
			case PixelFormatRGB565:
				v := r<<11 | g<<5 | b
				buf[off] = byte(v >> 8)
				buf[off+1] = byte(v)
			default:
				buf[off] = byte((x + y + p.tick) % 256)
			}
		}
	}
	return size, nil
}

// Close は何もしない
func (p *PatternSensor) Close() error {
	return nil
}
