package server

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fotocam/internal/camera"

	"github.com/mattn/go-mjpeg"
)

// stallingWriter はJPEG本体の最初の書き込みでresumeが閉じられるまで止まる視聴者
type stallingWriter struct {
	header  http.Header
	stalled atomic.Bool
	entered chan []byte // 書き込み開始時点の内容
	resume  chan struct{}
	after   chan []byte // 書き込み完了時点の内容
}

func newStallingWriter() *stallingWriter {
	return &stallingWriter{
		header:  make(http.Header),
		entered: make(chan []byte, 1),
		resume:  make(chan struct{}),
		after:   make(chan []byte, 1),
	}
}

func (w *stallingWriter) Header() http.Header { return w.header }

func (w *stallingWriter) WriteHeader(int) {}

func (w *stallingWriter) Flush() {}

func (w *stallingWriter) Write(p []byte) (int, error) {
	// パート区切りなどの短い書き込みはそのまま通す
	if len(p) < 100 && !w.stalled.Load() {
		return len(p), nil
	}
	if !w.stalled.CompareAndSwap(false, true) {
		return 0, errors.New("viewer gone")
	}

	w.entered <- bytes.Clone(p)
	<-w.resume
	w.after <- bytes.Clone(p)
	return 0, errors.New("viewer gone")
}

func decodeJPEGPart(t *testing.T, part []byte) {
	t.Helper()
	soi := bytes.Index(part, []byte{0xFF, 0xD8})
	if soi < 0 {
		t.Fatal("パートにJPEGが含まれていません")
	}
	if _, err := jpeg.Decode(bytes.NewReader(part[soi:])); err != nil {
		t.Errorf("パートのJPEGが壊れています: %v", err)
	}
}

// TestMJPEGFeedFrameStableWhileViewerWrites は遅い視聴者への送信中に
// 次のフレームを取得しても、送信中のバイト列が書き換わらないことを確認する
func TestMJPEGFeedFrameStableWhileViewerWrites(t *testing.T) {
	env := newTestEnvWithSensor(t, camera.NewPatternSensor(), true, false)
	feed := env.srv.feed
	t.Cleanup(func() {
		_ = feed.stream.Close()
	})

	w := newStallingWriter()
	go feed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mjpeg", nil))

	ctx := t.Context()
	var before []byte
	deadline := time.After(3 * time.Second)
wait:
	for {
		select {
		case before = <-w.entered:
			break wait
		case <-deadline:
			t.Fatal("視聴者にフレームが届きません")
		case <-time.After(10 * time.Millisecond):
			if feed.stream.NWatch() > 0 {
				feed.push(ctx)
			}
		}
	}

	// 視聴者が書き込み中のまま次のフレームを取得する
	for range 3 {
		img, err := env.dev.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		img.Release()
	}
	close(w.resume)

	var after []byte
	select {
	case after = <-w.after:
	case <-time.After(3 * time.Second):
		t.Fatal("視聴者の書き込みが完了しません")
	}

	if !bytes.Equal(before, after) {
		t.Error("送信中のフレームが次のフレームで書き換えられました")
	}
	decodeJPEGPart(t, after)
	env.assertNoLeaks(t)
}

func TestMJPEGViewerReceivesFrames(t *testing.T) {
	env := newTestEnvWithSensor(t, camera.NewPatternSensor(), true, false)

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		env.srv.feed.Run(ctx)
		close(done)
	}()

	dec, err := mjpeg.NewDecoderFromURL(ts.URL + "/mjpeg")
	if err != nil {
		cancel()
		t.Fatalf("MJPEGへの接続に失敗しました: %v", err)
	}

	for i := range 3 {
		img, err := dec.Decode()
		if err != nil {
			t.Errorf("%d枚目のフレームのデコードに失敗しました: %v", i+1, err)
			break
		}
		if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
			t.Errorf("予期しない解像度: %dx%d", b.Dx(), b.Dy())
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("MJPEG配信が停止しません")
	}
	ts.CloseClientConnections()

	env.assertNoLeaks(t)
}
