// Package storage は画像保存先のマウント確認とギャラリー操作を担う
//
// 保存先はフラットな1ディレクトリで、ファイル名以外のメタデータは持たない。
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrNoCard はマウントポイントが存在しないことを表す
	ErrNoCard = errors.New("storage card not present")
	// ErrUnavailable はストレージが未初期化であることを表す
	ErrUnavailable = errors.New("storage not available")
	// ErrDirUnreadable は画像ディレクトリを開けないことを表す
	ErrDirUnreadable = errors.New("image directory unreadable")
	// ErrInvalidName はファイル名が不正であることを表す
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotFound はファイルが存在しないことを表す
	ErrNotFound = errors.New("file not found")
	// ErrShortWrite は書き込みバイト数が不足したことを表す
	ErrShortWrite = errors.New("short write")
)

// Config はストレージの設定
type Config struct {
	Root       string `yaml:"root"`        // マウントポイント
	ImageDir   string `yaml:"image_dir"`   // 画像ディレクトリ名
	FilePrefix string `yaml:"file_prefix"` // 画像ファイル名の接頭辞
}

// DefaultConfig はデフォルトのストレージ設定を返す
func DefaultConfig() Config {
	return Config{
		Root:       "./sdcard",
		ImageDir:   "imagenes",
		FilePrefix: "foto_",
	}
}

// Info はマウントしたファイルシステムの情報
type Info struct {
	Type          string // ファイルシステム種別 (例: EXT4, FAT)
	CapacityBytes uint64 // 総容量
	FreeBytes     uint64 // 空き容量
}

// Store は画像ディレクトリへのアクセスを提供する
type Store struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex // Mountの直列化
	mounted atomic.Bool
	info    Info
}

// NewStore は新しいStoreを作成する。マウント確認はMountで行う
func NewStore(cfg Config, logger *zap.Logger) *Store {
	return &Store{
		config: cfg,
		logger: logger.With(zap.String("component", "storage")),
	}
}

// Mount はマウントポイントを確認する。確認済みなら何もせず成功を返す
func (s *Store) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("ストレージを初期化しています", zap.String("root", s.config.Root))

	if s.mounted.Load() {
		s.logger.Warn("ストレージは既に初期化されています")
		return nil
	}

	st, err := os.Stat(s.config.Root)
	if err != nil {
		s.logger.Error("ストレージの初期化に失敗しました", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNoCard, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s はディレクトリではありません", ErrNoCard, s.config.Root)
	}

	info, err := statFS(s.config.Root)
	if err != nil {
		return fmt.Errorf("ファイルシステム情報の取得に失敗: %w", err)
	}
	s.info = info

	s.logger.Info("ストレージを初期化しました",
		zap.String("type", info.Type),
		zap.Uint64("capacity_mb", info.CapacityBytes/(1024*1024)),
		zap.Uint64("free_mb", info.FreeBytes/(1024*1024)))

	s.mounted.Store(true)
	return nil
}

// Available はストレージが利用可能かを返す
func (s *Store) Available() bool {
	return s.mounted.Load()
}

// Info はマウント時に取得したファイルシステム情報を返す
func (s *Store) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// EnsureImageDir は画像ディレクトリがなければ作成する
// ストレージ未初期化の場合はログを出すだけで何もしない
func (s *Store) EnsureImageDir() {
	if !s.Available() {
		s.logger.Error("ストレージが未初期化のためディレクトリを作成できません")
		return
	}

	dir := s.dirPath()
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		s.logger.Info("画像ディレクトリは既に存在します", zap.String("dir", s.DisplayPath("")))
		return
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		s.logger.Error("画像ディレクトリの作成に失敗しました", zap.String("dir", dir), zap.Error(err))
		return
	}
	s.logger.Info("画像ディレクトリを作成しました", zap.String("dir", s.DisplayPath("")))
}

// DisplayPath はストレージルートからの相対パス（例: /imagenes/foto_1.jpg）を返す
func (s *Store) DisplayPath(name string) string {
	if name == "" {
		return "/" + s.config.ImageDir
	}
	return "/" + s.config.ImageDir + "/" + name
}

// Save はdataをnameとして書き込み、表示用パスを返す
func (s *Store) Save(name string, data []byte) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}

	f, err := os.OpenFile(s.filePath(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("ファイルのオープンに失敗: %w", err)
	}

	n, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗: %w", werr)
	}
	if n != len(data) {
		return "", fmt.Errorf("%w: %d/%d バイト", ErrShortWrite, n, len(data))
	}
	if cerr != nil {
		return "", fmt.Errorf("ファイルのクローズに失敗: %w", cerr)
	}

	path := s.DisplayPath(name)
	s.logger.Info("画像を保存しました", zap.String("path", path), zap.Int("bytes", n))
	return path, nil
}

// List は画像ディレクトリ内のファイル名をディレクトリの列挙順で返す
func (s *Store) List() ([]string, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}

	dir, err := os.Open(s.dirPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirUnreadable, err)
	}
	defer func() {
		_ = dir.Close()
	}()

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirUnreadable, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Open はnameを読み取り用に開き、サイズとともに返す
func (s *Store) Open(name string) (io.ReadCloser, int64, error) {
	if !s.Available() {
		return nil, 0, ErrUnavailable
	}
	if err := ValidateName(name); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(s.filePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("ファイルのオープンに失敗: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("ファイル情報の取得に失敗: %w", err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, st.Size(), nil
}

// Remove はnameを削除する
func (s *Store) Remove(name string) error {
	if !s.Available() {
		return ErrUnavailable
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := os.Remove(s.filePath(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("ファイルの削除に失敗: %w", err)
	}

	s.logger.Info("画像を削除しました", zap.String("path", s.DisplayPath(name)))
	return nil
}

// ValidateName は画像ディレクトリ外を指すファイル名を拒否する
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) dirPath() string {
	return filepath.Join(s.config.Root, s.config.ImageDir)
}

func (s *Store) filePath(name string) string {
	return filepath.Join(s.dirPath(), name)
}
