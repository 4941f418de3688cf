package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fotocam/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Camera.Sensor = "pattern"
	cfg.Camera.FrameSize = "QQVGA"
	cfg.Storage.Root = t.TempDir()
	cfg.Monitor.Interval = 20 * time.Millisecond
	return cfg
}

func TestNewBootsAllComponents(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(t.Context(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if !a.Device().CameraInitialized() {
		t.Error("カメラが初期化されていません")
	}
	if !a.Device().StorageAvailable() {
		t.Error("ストレージがマウントされていません")
	}
	if st, err := os.Stat(filepath.Join(cfg.Storage.Root, cfg.Storage.ImageDir)); err != nil || !st.IsDir() {
		t.Errorf("画像ディレクトリが作成されていません: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/capture", nil)
	w := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("撮影に失敗しました: %d %s", w.Code, w.Body.String())
	}
}

func TestNewContinuesWithoutStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Root = filepath.Join(cfg.Storage.Root, "missing")

	a, err := New(t.Context(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("ストレージなしでも起動するはずです: %v", err)
	}
	defer a.Close()

	if a.Device().StorageAvailable() {
		t.Error("存在しないルートがマウントされました")
	}
	if !a.Device().CameraInitialized() {
		t.Error("カメラが初期化されていません")
	}
}

func TestNewUnknownSensor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Camera.Sensor = "unknown"

	if _, err := New(t.Context(), cfg, zap.NewNop()); err == nil {
		t.Error("未知のセンサーでエラーになりませんでした")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(t.Context(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Runが停止しません")
	}
}
