package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"
	"sync/atomic"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Encoder は生フレームをJPEGに変換する
type Encoder interface {
	Encode(f *Frame) (*JPEG, error)
}

// JPEG はエンコード済み画像。使い終わったら必ずReleaseを呼ぶ
type JPEG struct {
	buf      *bytes.Buffer
	owner    *JPEGEncoder
	released atomic.Bool
}

// Bytes はJPEGデータを返す。Release後は使用できない
func (j *JPEG) Bytes() []byte {
	return j.buf.Bytes()
}

// Len はJPEGデータのバイト数を返す
func (j *JPEG) Len() int {
	return j.buf.Len()
}

// Release はバッファをエンコーダーに返却する。二度目以降の呼び出しは何もしない
func (j *JPEG) Release() {
	if !j.released.CompareAndSwap(false, true) {
		return
	}
	j.owner.put(j.buf)
}

// JPEGEncoder は標準のJPEGエンコーダーでフレームを変換する
type JPEGEncoder struct {
	quality int
	overlay bool

	buffers     sync.Pool
	outstanding atomic.Int32
}

// NewJPEGEncoder は新しいJPEGEncoderを作成する
func NewJPEGEncoder(quality int, overlay bool) *JPEGEncoder {
	return &JPEGEncoder{
		quality: quality,
		overlay: overlay,
		buffers: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}
}

// Outstanding は返却されていないJPEGバッファ数を返す
func (e *JPEGEncoder) Outstanding() int {
	return int(e.outstanding.Load())
}

// Encode はフレームをJPEGに変換する
func (e *JPEGEncoder) Encode(f *Frame) (*JPEG, error) {
	img, err := frameImage(f, e.overlay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if e.overlay {
		drawTimestamp(img, f)
	}

	buf := e.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	e.outstanding.Add(1)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		e.put(buf)
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return &JPEG{buf: buf, owner: e}, nil
}

func (e *JPEGEncoder) put(buf *bytes.Buffer) {
	e.outstanding.Add(-1)
	e.buffers.Put(buf)
}

// frameImage は生データからimage.Imageを組み立てる
func frameImage(f *Frame, writable bool) (draw.Image, error) {
	want := f.Width * f.Height * f.Format.BytesPerPixel()
	if want == 0 || len(f.Data) != want {
		return nil, fmt.Errorf("フレームサイズが不正: %d バイト (期待値 %d)", len(f.Data), want)
	}

	rect := image.Rect(0, 0, f.Width, f.Height)

	switch f.Format {
	case PixelFormatRGB565:
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < len(f.Data); i, j = i+2, j+4 {
			// ビッグエンディアンのRGB565
			v := uint16(f.Data[i])<<8 | uint16(f.Data[i+1])
			r := uint8(v>>11) & 0x1f
			g := uint8(v>>5) & 0x3f
			b := uint8(v) & 0x1f
			img.Pix[j] = r<<3 | r>>2
			img.Pix[j+1] = g<<2 | g>>4
			img.Pix[j+2] = b<<3 | b>>2
			img.Pix[j+3] = 0xff
		}
		return img, nil

	case PixelFormatGrayscale:
		img := &image.Gray{Pix: f.Data, Stride: f.Width, Rect: rect}
		if writable {
			// オーバーレイでフレームバッファを書き換えないようにコピーする
			cp := image.NewGray(rect)
			copy(cp.Pix, f.Data)
			return cp, nil
		}
		return img, nil

	default:
		return nil, fmt.Errorf("サポートされていない画素フォーマット: %s", f.Format)
	}
}

// drawTimestamp は画像の左下に取得時刻を描画する
func drawTimestamp(img draw.Image, f *Frame) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, f.Height-4),
	}
	d.DrawString(f.Timestamp.Format("2006-01-02 15:04:05"))
}
