// Package app は起動シーケンスを組み立てる
//
// 起動順序: カメラ初期化 → ストレージのマウント → 画像ディレクトリ作成 → 死活監視 → HTTPサーバー
// カメラやストレージの初期化に失敗しても起動は継続し、各エンドポイントがエラーを返す。
package app

import (
	"context"
	"errors"
	"fmt"

	"fotocam/internal/api"
	"fotocam/internal/camera"
	"fotocam/internal/config"
	"fotocam/internal/device"
	"fotocam/internal/flash"
	"fotocam/internal/monitor"
	"fotocam/internal/server"
	"fotocam/internal/storage"

	"go.uber.org/zap"
)

// App は組み立て済みのアプリケーション
type App struct {
	config  *config.Config
	camera  *camera.Device
	store   *storage.Store
	flash   flash.Driver
	device  *device.Device
	monitor *monitor.Monitor
	server  *server.Server
	logger  *zap.Logger
}

// New はハードウェアを初期化してAppを作成する
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// API定義が壊れていればレスポンスの互換性を保証できない
	if _, err := api.LoadSpec(ctx); err != nil {
		return nil, err
	}

	sensor, err := camera.NewSensorFactory().Create(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("センサーの作成に失敗: %w", err)
	}

	cam := camera.NewDevice(sensor, cfg.Camera, logger)
	if err := cam.Init(ctx); err != nil {
		logger.Error("カメラの初期化に失敗しました。カメラなしで起動します", zap.Error(err))
	} else {
		logger.Info("カメラを初期化しました",
			zap.String("sensor", cfg.Camera.Sensor),
			zap.String("resolution", cfg.Camera.Resolution().String()))
	}

	store := storage.NewStore(cfg.Storage, logger)
	if err := store.Mount(); err != nil {
		logger.Error("ストレージのマウントに失敗しました。ストレージなしで起動します", zap.Error(err))
	}
	store.EnsureImageDir()

	fl, err := flash.New(cfg.Flash, logger)
	if err != nil {
		logger.Warn("フラッシュを無効にします", zap.Error(err))
		fl = flash.Nop{}
	}

	clock := storage.NewBootClock()
	dev := device.New(device.Options{
		Camera:  cam,
		Encoder: camera.NewJPEGEncoder(cfg.Camera.EncodeQuality, cfg.Camera.Overlay),
		Gallery: store,
		Flash:   fl,
		Namer:   storage.NewNamer(cfg.Storage.FilePrefix, clock),
		Clock:   clock,
		Logger:  logger,
	})

	return &App{
		config:  cfg,
		camera:  cam,
		store:   store,
		flash:   fl,
		device:  dev,
		monitor: monitor.New(dev, cfg.Monitor.Interval, logger),
		server:  server.New(cfg, dev, store, logger),
		logger:  logger,
	}, nil
}

// Device はデバイスコンテキストを返す
func (a *App) Device() *device.Device {
	return a.device
}

// Server はHTTPサーバーを返す
func (a *App) Server() *server.Server {
	return a.server
}

// Run は死活監視とHTTPサーバーを起動し、終了まで待つ
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.monitor.Run(ctx)

	return a.server.Start(ctx)
}

// Close はハードウェアを解放する
func (a *App) Close() error {
	return errors.Join(a.camera.Close(), a.flash.Close())
}
