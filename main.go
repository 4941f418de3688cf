package main

import (
	"context"
	"log"
	"os"

	"fotocam/internal/app"
	"fotocam/internal/config"
	"fotocam/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(context.Background()))
}

// run はサーバーを起動し、終了コードを返す
func run(ctx context.Context) int {
	// 設定を読み込む（FOTOCAM_CONFIG でYAMLを指定可能）
	cfg, err := config.Load(os.Getenv("FOTOCAM_CONFIG"))
	if err != nil {
		log.Printf("設定の読み込みに失敗しました: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Printf("ロガーの作成に失敗しました: %v", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("起動に失敗しました", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("ハードウェアの解放に失敗しました", zap.Error(err))
		}
	}()

	// サーバーを起動
	if err := a.Run(ctx); err != nil {
		logger.Error("サーバーの起動に失敗しました", zap.Error(err))
		return 1
	}
	return 0
}
