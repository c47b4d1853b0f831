package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jiuba_platform/internal/config"
)

// 1x1 PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
	0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41,
	0x54, 0x08, 0xD7, 0x63, 0xF8, 0xFF, 0xFF, 0x3F,
	0x00, 0x05, 0xFE, 0x02, 0xFE, 0xDC, 0xCC, 0x59,
	0xE7, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
	0x44, 0xAE, 0x42, 0x60, 0x82,
}

func TestNewStorageService_Local(t *testing.T) {
	tempDir := t.TempDir()

	svc, err := NewStorageService(config.StorageConfig{
		Provider: "local",
		BasePath: tempDir,
	})
	if err != nil {
		t.Fatalf("NewStorageService() error = %v", err)
	}

	dir, ok := svc.LocalDir()
	if !ok || dir != tempDir {
		t.Errorf("LocalDir() = %q, %v", dir, ok)
	}
}

func TestNewStorageService_InvalidProvider(t *testing.T) {
	_, err := NewStorageService(config.StorageConfig{
		Provider: "invalid",
	})
	if err == nil {
		t.Error("期望返回错误，但未返回")
	}
}

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	tempDir := t.TempDir()

	svc, err := NewStorageService(config.StorageConfig{
		Provider: "local",
		BasePath: tempDir,
		Endpoint: "http://cdn.test/uploads/",
	})
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	ctx := context.Background()
	url, err := svc.UploadImage(ctx, tinyPNG, "products")
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if !strings.HasPrefix(url, "http://cdn.test/uploads/products/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("UploadImage() url = %s", url)
	}

	key := strings.TrimPrefix(url, "http://cdn.test/uploads/")
	full := filepath.Join(tempDir, filepath.FromSlash(key))
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("文件未写入: %v", err)
	}

	if err := svc.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Errorf("文件未删除: %v", err)
	}

	// 重复删除和空 URL 都不报错
	if err := svc.Delete(ctx, url); err != nil {
		t.Errorf("重复 Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, ""); err != nil {
		t.Errorf("Delete(\"\") error = %v", err)
	}

	if err := svc.Delete(ctx, "http://other.host/a.png"); err == nil {
		t.Error("外部 URL 应返回错误")
	}
}

func TestStorageService_RejectsInvalidImage(t *testing.T) {
	svc, err := NewStorageService(config.StorageConfig{Provider: "local", BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	ctx := context.Background()
	cases := map[string][]byte{
		"empty": {},
		"text":  []byte("Hello, World!"),
		"huge":  append(append([]byte{}, tinyPNG...), make([]byte, maxImageSize)...),
	}
	for name, data := range cases {
		if _, err := svc.UploadImage(ctx, data, "avatars"); err == nil {
			t.Errorf("%s: 期望返回错误", name)
		}
	}

	var disabled *StorageService
	if _, err := disabled.UploadImage(ctx, tinyPNG, "avatars"); err != ErrStorageDisabled {
		t.Errorf("nil 服务 err = %v", err)
	}
}

func TestLocalStorage_UploadFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(tinyPNG)
	}))
	defer server.Close()

	svc, err := NewStorageService(config.StorageConfig{Provider: "local", BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url, err := svc.UploadFromURL(ctx, server.URL+"/logo.png", "shops")
	if err != nil {
		t.Fatalf("UploadFromURL() error = %v", err)
	}
	if !strings.Contains(url, "/shops/") {
		t.Errorf("UploadFromURL() url = %s", url)
	}

	if _, err := svc.UploadFromURL(ctx, server.URL+"/missing.png", "shops"); err == nil {
		t.Error("404 应返回错误")
	}
}
