// Package main はfotocamサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"fotocam/internal/app"
	"fotocam/internal/camera"
	"fotocam/internal/config"
	"fotocam/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

// run はサーバーを起動し、終了コードを返す
// 戻る前にハードウェアの解放とログのフラッシュを済ませる
func run(ctx context.Context, args []string, stdout io.Writer) int {
	// コマンドラインオプション
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "設定ファイル(YAML)のパス")
		host       = fs.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = fs.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		sensor     = fs.String("sensor", "", "センサー種別 (v4l2, pattern)")
		help       = fs.Bool("help", false, "ヘルプを表示")
	)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// ヘルプ表示
	if *help {
		fs.SetOutput(stdout)
		fmt.Fprintln(stdout, "fotocam - カメラ撮影・画像ギャラリーサーバー")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "使用方法:")
		fmt.Fprintln(stdout, "  server [オプション]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "オプション:")
		fs.PrintDefaults()
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "センサー種別:", camera.NewSensorFactory().SupportedTypes())
		return 0
	}

	// 設定を読み込む
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("設定の読み込みに失敗しました: %v", err)
		return 1
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *sensor != "" {
		cfg.Camera.Sensor = *sensor
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("設定が不正です: %v", err)
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
	logger.Info("fotocam サーバーを起動します", zap.String("address", cfg.ServerAddress()))
	if err := a.Run(ctx); err != nil {
		logger.Error("サーバーの起動に失敗しました", zap.Error(err))
		return 1
	}
	return 0
}
