// Package logging はアプリケーション共通のzapロガーを作成する
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config はロガーの設定
type Config struct {
	Level       string `yaml:"level"`       // debug / info / warn / error
	Development bool   `yaml:"development"` // コンソール形式で出力する
}

// DefaultConfig はデフォルトのロガー設定を返す
func DefaultConfig() Config {
	return Config{
		Level: "info",
	}
}

// New は設定に従ってロガーを作成する
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("無効なログレベル: %q", cfg.Level)
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}
	return logger, nil
}
