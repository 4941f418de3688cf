package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"fotocam/internal/camera"
	"fotocam/internal/flash"
	"fotocam/internal/logging"
	"fotocam/internal/monitor"
	"fotocam/internal/storage"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Camera  camera.Config  `yaml:"camera"`
	Storage storage.Config `yaml:"storage"`
	Monitor MonitorConfig  `yaml:"monitor"`
	Flash   flash.Config   `yaml:"flash"`
	Log     logging.Config `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト

	// /mjpeg の配信間隔
	MJPEGInterval time.Duration `yaml:"mjpeg_interval"`
}

// MonitorConfig はカメラ死活監視の設定
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"` // 確認間隔
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  0, // ストリーミング用にタイムアウト無効化
			MJPEGInterval: 100 * time.Millisecond,
		},
		Camera:  camera.DefaultConfig(),
		Storage: storage.DefaultConfig(),
		Monitor: MonitorConfig{
			Interval: monitor.DefaultInterval,
		},
		Flash: flash.DefaultConfig(),
		Log:   logging.DefaultConfig(),
	}
}

// Load は設定を読み込む
// デフォルト値にYAMLファイル（pathが空でなければ）と環境変数を順に上書きする
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("設定ファイルが見つかりません: %s", path)
			}
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Storage.Root = getEnvOrDefault("FOTOCAM_STORAGE_ROOT", c.Storage.Root)
	c.Camera.Sensor = getEnvOrDefault("FOTOCAM_SENSOR", c.Camera.Sensor)
	c.Camera.Device = getEnvOrDefault("FOTOCAM_DEVICE", c.Camera.Device)
	c.Log.Level = getEnvOrDefault("FOTOCAM_LOG_LEVEL", c.Log.Level)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Server.MJPEGInterval <= 0 {
		return fmt.Errorf("無効なMJPEG配信間隔: %s", c.Server.MJPEGInterval)
	}

	if err := c.Camera.Validate(); err != nil {
		return fmt.Errorf("カメラ設定: %w", err)
	}

	if c.Storage.Root == "" {
		return fmt.Errorf("ストレージのルートが設定されていません")
	}
	if err := storage.ValidateName(c.Storage.ImageDir); err != nil {
		return fmt.Errorf("無効な画像ディレクトリ名: %q", c.Storage.ImageDir)
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("無効な監視間隔: %s", c.Monitor.Interval)
	}

	if c.Flash.Enabled && (c.Flash.Pin < 0 || c.Flash.Pin > 53) {
		return fmt.Errorf("無効なフラッシュピン: %d", c.Flash.Pin)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
