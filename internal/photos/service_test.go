package photos

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openshelter/shelterboard/internal/config"
)

func TestNewServicePicksBackend(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("filesystem when no bucket configured", func(t *testing.T) {
		cfg := &config.Config{PhotoRoot: t.TempDir()}

		svc, err := NewService(cfg, logger)
		if err != nil {
			t.Fatalf("NewService() error = %v", err)
		}
		if _, ok := svc.storage.(*FilesystemStorage); !ok {
			t.Errorf("storage type = %T, want *FilesystemStorage", svc.storage)
		}
	})
}

func TestFilesystemStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewFilesystemStorage(t.TempDir(), zerolog.Nop())

	key, err := fs.Store(ctx, "abc123", "rex.png", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if key != "ab/abc123/photo.png" {
		t.Errorf("Store() key = %q, want %q", key, "ab/abc123/photo.png")
	}

	rc, err := fs.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("Open() data = %q, want %q", data, "png-bytes")
	}

	if err := fs.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := fs.Open(ctx, key); err == nil {
		t.Error("Open() after Delete() expected error, got nil")
	}

	// Deleting again is not an error.
	if err := fs.Delete(ctx, key); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestFilesystemStorageCheckAccess(t *testing.T) {
	ctx := context.Background()

	fs := NewFilesystemStorage(t.TempDir(), zerolog.Nop())
	if err := fs.CheckAccess(ctx); err != nil {
		t.Errorf("CheckAccess() error = %v", err)
	}

	missing := NewFilesystemStorage("/nonexistent/photo/root", zerolog.Nop())
	if err := missing.CheckAccess(ctx); err == nil {
		t.Error("CheckAccess() on missing root expected error, got nil")
	}
}

func TestBuildPhotoKey(t *testing.T) {
	tests := []struct {
		name     string
		animalID string
		filename string
		want     string
	}{
		{"jpeg extension preserved", "abcd-1234", "portrait.JPG", "ab/abcd-1234/photo.jpg"},
		{"missing extension defaults to jpg", "abcd-1234", "portrait", "ab/abcd-1234/photo.jpg"},
		{"short id not truncated", "ab", "x.png", "ab/ab/photo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildPhotoKey(tt.animalID, tt.filename)
			if got != tt.want {
				t.Errorf("buildPhotoKey(%q, %q) = %q, want %q", tt.animalID, tt.filename, got, tt.want)
			}
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := contentTypeFor("photo.PNG"); got != "image/png" {
		t.Errorf("contentTypeFor(photo.PNG) = %q, want image/png", got)
	}
	if got := contentTypeFor("photo"); got != "image/jpeg" {
		t.Errorf("contentTypeFor(photo) = %q, want image/jpeg", got)
	}
	if got := contentTypeFor("anim.webp"); got != "image/webp" {
		t.Errorf("contentTypeFor(anim.webp) = %q, want image/webp", got)
	}
}
