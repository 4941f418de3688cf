package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"fotocam/internal/device"

	"github.com/mattn/go-mjpeg"
	"go.uber.org/zap"
)

// mjpegFeed は視聴者がいる間だけフレームを取得してMJPEGストリームに流す
type mjpegFeed struct {
	stream   *mjpeg.Stream
	device   *device.Device
	interval time.Duration
	logger   *zap.Logger
}

func newMJPEGFeed(dev *device.Device, interval time.Duration, logger *zap.Logger) *mjpegFeed {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &mjpegFeed{
		stream:   mjpeg.NewStreamWithInterval(interval),
		device:   dev,
		interval: interval,
		logger:   logger.With(zap.String("component", "mjpeg")),
	}
}

// ServeHTTP はmultipart/x-mixed-replaceで配信する
func (f *mjpegFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.logger.Info("MJPEG視聴を開始しました", zap.String("remote", r.RemoteAddr))
	f.stream.ServeHTTP(w, r)
	f.logger.Info("MJPEG視聴を終了しました", zap.String("remote", r.RemoteAddr))
}

// Run はコンテキストが終わるまでフレームを供給する
func (f *mjpegFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer f.stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.stream.NWatch() == 0 {
				continue
			}
			f.push(ctx)
		}
	}
}

func (f *mjpegFeed) push(ctx context.Context) {
	img, err := f.device.Snapshot(ctx)
	if err != nil {
		f.logger.Debug("MJPEG用フレームの取得に失敗しました", zap.Error(err))
		return
	}
	// Updateはスライスを複製せず視聴者に渡す
	frame := bytes.Clone(img.Bytes())
	img.Release()

	if err := f.stream.Update(frame); err != nil {
		f.logger.Warn("MJPEGストリームの更新に失敗しました", zap.Error(err))
	}
}
