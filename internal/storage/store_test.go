package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newMountedStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Root = root

	s := NewStore(cfg, zap.NewNop())
	if err := s.Mount(); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	s.EnsureImageDir()
	return s, root
}

func TestStore_MountMissingRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Join(t.TempDir(), "no-card")

	s := NewStore(cfg, zap.NewNop())
	err := s.Mount()
	if !errors.Is(err, ErrNoCard) {
		t.Fatalf("Expected ErrNoCard, got %v", err)
	}
	if s.Available() {
		t.Error("Store must not be available after a failed mount")
	}
}

func TestStore_MountRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Root = root

	if err := NewStore(cfg, zap.NewNop()).Mount(); !errors.Is(err, ErrNoCard) {
		t.Errorf("Expected ErrNoCard, got %v", err)
	}
}

func TestStore_MountIdempotent(t *testing.T) {
	s, _ := newMountedStore(t)

	if err := s.Mount(); err != nil {
		t.Fatalf("Second Mount failed: %v", err)
	}
	if !s.Available() {
		t.Error("Expected store to be available")
	}
	if s.Info().Type == "" {
		t.Error("Expected filesystem type to be set")
	}
}

func TestStore_EnsureImageDirWithoutMount(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Root = root

	s := NewStore(cfg, zap.NewNop())
	s.EnsureImageDir()

	if _, err := os.Stat(filepath.Join(root, cfg.ImageDir)); !os.IsNotExist(err) {
		t.Error("Image directory must not be created before mount")
	}
}

func TestStore_EnsureImageDir(t *testing.T) {
	s, root := newMountedStore(t)

	st, err := os.Stat(filepath.Join(root, "imagenes"))
	if err != nil {
		t.Fatalf("Image directory not created: %v", err)
	}
	if !st.IsDir() {
		t.Error("Expected a directory")
	}

	// 既に存在する場合も問題なく終わること
	s.EnsureImageDir()
}

func TestStore_SaveOpenListRemove(t *testing.T) {
	s, root := newMountedStore(t)
	data := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}

	path, err := s.Save("foto_1.jpg", data)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != "/imagenes/foto_1.jpg" {
		t.Errorf("Unexpected path %q", path)
	}

	onDisk, err := os.ReadFile(filepath.Join(root, "imagenes", "foto_1.jpg"))
	if err != nil {
		t.Fatalf("File not written: %v", err)
	}
	if len(onDisk) != len(data) {
		t.Errorf("Expected %d bytes on disk, got %d", len(data), len(onDisk))
	}

	// サブディレクトリは一覧に含まれない
	if err := os.Mkdir(filepath.Join(root, "imagenes", "thumbs"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "foto_1.jpg" {
		t.Errorf("Unexpected list %v", names)
	}

	rc, size, err := s.Open("foto_1.jpg")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if size != int64(len(data)) || string(got) != string(data) {
		t.Errorf("Open returned size %d, %d bytes", size, len(got))
	}

	if err := s.Remove("foto_1.jpg"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	names, err = s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected empty list after remove, got %v", names)
	}
}

func TestStore_NotFound(t *testing.T) {
	s, _ := newMountedStore(t)

	if _, _, err := s.Open("missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open: expected ErrNotFound, got %v", err)
	}
	if err := s.Remove("missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Unavailable(t *testing.T) {
	s := NewStore(DefaultConfig(), zap.NewNop())

	if _, err := s.Save("a.jpg", []byte{1}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Save: expected ErrUnavailable, got %v", err)
	}
	if _, err := s.List(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("List: expected ErrUnavailable, got %v", err)
	}
	if _, _, err := s.Open("a.jpg"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open: expected ErrUnavailable, got %v", err)
	}
	if err := s.Remove("a.jpg"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Remove: expected ErrUnavailable, got %v", err)
	}
}

func TestStore_ListUnreadableDir(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Root = root

	s := NewStore(cfg, zap.NewNop())
	if err := s.Mount(); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	// EnsureImageDirを呼ばないのでディレクトリは存在しない
	if _, err := s.List(); !errors.Is(err, ErrDirUnreadable) {
		t.Errorf("Expected ErrDirUnreadable, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name  string
		valid bool
	}{
		{"foto_123.jpg", true},
		{"image.jpeg", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../etc/passwd", false},
		{"sub/foto.jpg", false},
		{`..\foto.jpg`, false},
		{"foto\x00.jpg", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.name)
			if tc.valid && err != nil {
				t.Errorf("Expected %q to be valid, got %v", tc.name, err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidName) {
				t.Errorf("Expected ErrInvalidName for %q, got %v", tc.name, err)
			}
		})
	}
}

func TestStore_SaveRejectsTraversal(t *testing.T) {
	s, root := newMountedStore(t)

	if _, err := s.Save("../escape.jpg", []byte{1}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Expected ErrInvalidName, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.jpg")); !os.IsNotExist(err) {
		t.Error("File must not be written outside the image directory")
	}
}
