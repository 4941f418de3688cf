package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fotocam/internal/api"
	"fotocam/internal/config"
	"fotocam/internal/device"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	engine     *gin.Engine
	handler    *Handler
	feed       *mjpegFeed
	logger     *zap.Logger
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, dev *device.Device, gallery Gallery, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(logger))

	s := &Server{
		config:  cfg,
		engine:  engine,
		handler: NewHandler(dev, gallery, logger),
		feed:    newMJPEGFeed(dev, cfg.Server.MJPEGInterval, logger),
		logger:  logger.With(zap.String("component", "server")),
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/openapi.yaml", s.handleSpec)

	s.engine.GET("/capture", s.handler.Capture)
	s.engine.GET("/stream", s.handler.Stream)
	s.engine.GET("/mjpeg", gin.WrapH(s.feed))
	s.engine.GET("/list", s.handler.List)
	s.engine.GET("/download", s.handler.Image)
	s.engine.GET("/view", s.handler.Image)
	s.engine.GET("/delete", s.handler.Delete)
	s.engine.GET("/info", s.handler.Info)
}

// handleRoot はブラウザ用の操作画面を返す
func (s *Server) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}

// handleSpec はAPI定義を返す
func (s *Server) handleSpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", api.Spec())
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go s.feed.Run(feedCtx)

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", zap.String("address", s.config.ServerAddress()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", zap.String("signal", sig.String()))
	case err := <-shutdownCh:
		return err
	}

	// MJPEG配信を先に止めて接続中のクライアントを解放する
	stopFeed()

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
