package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"fotocam/internal/api"
	"fotocam/internal/camera"
	"fotocam/internal/device"
	"fotocam/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

// chunkSize はファイル配信時の1回あたりの読み出しサイズ
const chunkSize = 1024

// Gallery は保存済み画像へのアクセスを提供する
type Gallery interface {
	Available() bool
	List() ([]string, error)
	Open(name string) (io.ReadCloser, int64, error)
	Remove(name string) error
}

// Handler はAPIエンドポイントの実装
type Handler struct {
	device  *device.Device
	gallery Gallery
	logger  *zap.Logger
}

// NewHandler は新しいHandlerを作成する
func NewHandler(dev *device.Device, gallery Gallery, logger *zap.Logger) *Handler {
	return &Handler{
		device:  dev,
		gallery: gallery,
		logger:  logger.With(zap.String("component", "handler")),
	}
}

// Capture は撮影して保存するエンドポイントの実装
func (h *Handler) Capture(c *gin.Context) {
	name, err := h.device.Capture(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.NewErrorResponse(captureErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, api.CaptureResponse{
		Success:  true,
		Filename: name,
	})
}

// Stream は1フレームをJPEGで返すエンドポイントの実装
// 連続映像はクライアント側で繰り返し呼び出して実現する
func (h *Handler) Stream(c *gin.Context) {
	img, err := h.device.Snapshot(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, captureErrorMessage(err))
		return
	}
	defer img.Release()

	c.DataFromReader(http.StatusOK, int64(img.Len()), "image/jpeg", bytes.NewReader(img.Bytes()), map[string]string{
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
		"Expires":       "0",
	})
}

// List は保存済み画像の一覧エンドポイントの実装
func (h *Handler) List(c *gin.Context) {
	names, err := h.gallery.List()
	if err != nil {
		msg := api.MsgDirUnreadable
		if errors.Is(err, storage.ErrUnavailable) {
			msg = api.MsgStorageUnavailable
		}
		h.logger.Error("画像一覧の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.ListErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, api.ListResponse{Files: names})
}

// Image は保存済み画像を返すエンドポイントの実装（/view と /download 共通）
func (h *Handler) Image(c *gin.Context) {
	file, ok := fileParam(c)
	if !ok {
		c.String(http.StatusBadRequest, api.MsgFileNotSpecified)
		return
	}

	rc, size, err := h.gallery.Open(file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnavailable):
			c.String(http.StatusInternalServerError, api.MsgStorageUnavailable)
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
			c.String(http.StatusNotFound, api.MsgFileNotFound)
		default:
			// 開けないファイルは存在しないものとして扱う
			h.logger.Error("画像のオープンに失敗しました", zap.String("file", file), zap.Error(err))
			c.String(http.StatusNotFound, api.MsgFileNotFound)
		}
		return
	}
	defer func() {
		_ = rc.Close()
	}()

	c.Header("Content-Length", strconv.FormatInt(size, 10))
	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)

	buf := make([]byte, chunkSize)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				h.logger.Warn("画像の送信を中断しました", zap.String("file", file), zap.Error(werr))
				return
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			h.logger.Error("画像の読み出しに失敗しました", zap.String("file", file), zap.Error(err))
			return
		}
	}
}

// Delete は保存済み画像を削除するエンドポイントの実装
func (h *Handler) Delete(c *gin.Context) {
	file, ok := fileParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.MsgFileNotSpecified))
		return
	}

	if err := h.gallery.Remove(file); err != nil {
		msg := api.MsgDeleteFailed
		if errors.Is(err, storage.ErrUnavailable) {
			msg = api.MsgStorageUnavailable
		}
		h.logger.Warn("画像の削除に失敗しました", zap.String("file", file), zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.NewErrorResponse(msg))
		return
	}

	c.JSON(http.StatusOK, api.DeleteResponse{Success: true})
}

// Info はデバイス状態のエンドポイントの実装
func (h *Handler) Info(c *gin.Context) {
	st := h.device.Status()

	response := api.InfoResponse{
		Inicializada:    st.CameraInitialized,
		SdDisponible:    st.StorageAvailable,
		Formato:         st.Format,
		Resolucion:      st.Resolution,
		MemoriaLibre:    st.FreeMemory,
		PsramDisponible: st.ExtendedRAM,
		BootId:          st.BootID,
		UptimeMs:        st.Uptime.Milliseconds(),
	}
	if st.LastPath != "" {
		response.UltimaFoto = &st.LastPath
	}

	c.JSON(http.StatusOK, response)
}

// ヘルパー関数

// fileParam はクエリパラメータ file を取り出す
func fileParam(c *gin.Context) (string, bool) {
	var file string
	err := runtime.BindQueryParameter("form", true, true, "file", c.Request.URL.Query(), &file)
	if err != nil || file == "" {
		return "", false
	}
	return file, true
}

// captureErrorMessage は撮影時のエラーをクライアント向けメッセージに変換する
func captureErrorMessage(err error) string {
	switch {
	case errors.Is(err, camera.ErrNotInitialized):
		return api.MsgCameraNotInitialized
	case errors.Is(err, camera.ErrEncode):
		return api.MsgEncodeFailed
	case errors.Is(err, camera.ErrCapture), errors.Is(err, camera.ErrNoFreeBuffer):
		return api.MsgCaptureFailed
	default:
		return api.MsgSaveFailed
	}
}
