package camera

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"
)

var v4l2DevicePattern = regexp.MustCompile(`^/dev/video\d+$`)

// V4L2Sensor はffmpeg経由でV4L2デバイスから1フレームを取得する
type V4L2Sensor struct {
	device  string
	config  Config
	timeout time.Duration
}

// NewV4L2Sensor は新しいV4L2Sensorを作成する
func NewV4L2Sensor(device string) *V4L2Sensor {
	return &V4L2Sensor{
		device:  device,
		timeout: 10 * time.Second,
	}
}

// Init はデバイスとffmpegが利用可能か確認する
func (s *V4L2Sensor) Init(_ context.Context, cfg Config) error {
	if !v4l2DevicePattern.MatchString(s.device) {
		return fmt.Errorf("V4L2デバイスではありません: %s", s.device)
	}

	file, err := os.OpenFile(s.device, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("デバイスが利用できません: %w", err)
	}
	_ = file.Close()

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpegが見つかりません: %w", err)
	}

	s.config = cfg
	return nil
}

// ReadFrame はffmpegで1フレームをrawvideoとして取得する
func (s *V4L2Sensor) ReadFrame(ctx context.Context, buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pixFmt := "rgb565be"
	if s.config.PixelFormat == PixelFormatGrayscale {
		pixFmt = "gray"
	}

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-loglevel", "error",
		"-f", "v4l2",
		"-video_size", s.config.Resolution().String(),
		"-i", s.device,
		"-vframes", "1",
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("フレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}

	return copyFrame(buf, stdout.Bytes())
}

// copyFrame はffmpegの出力をbufに写す。サイズが一致しなければErrCaptureを返す
func copyFrame(buf, out []byte) (int, error) {
	if len(out) != len(buf) {
		return 0, fmt.Errorf("%w: フレームサイズが一致しません (%d/%d バイト)", ErrCapture, len(out), len(buf))
	}
	return copy(buf, out), nil
}

// Close は何もしない。ffmpegはフレームごとに終了している
func (s *V4L2Sensor) Close() error {
	return nil
}
