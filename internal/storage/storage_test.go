package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"/files", "image/2026/03/01/a.png", "/files/image/2026/03/01/a.png"},
		{"/files/", "/image/a.png", "/files/image/a.png"},
		{"https://cdn.example.com", "image/a.png", "https://cdn.example.com/image/a.png"},
		{"", "image/a.png", "/image/a.png"},
		{"https://cdn.example.com", "", "https://cdn.example.com"},
	}
	for _, tt := range tests {
		if got := joinURL(tt.base, tt.key); got != tt.want {
			t.Fatalf("joinURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}

func TestPublicBaseOr(t *testing.T) {
	if got := publicBaseOr("/files", "https://bucket.s3.us-east-1.amazonaws.com"); got != "https://bucket.s3.us-east-1.amazonaws.com" {
		t.Fatalf("relative base should fall back, got %q", got)
	}
	if got := publicBaseOr("https://cdn.example.com/", "https://fallback"); got != "https://cdn.example.com" {
		t.Fatalf("absolute base should win, got %q", got)
	}
}

func TestS3BucketURL(t *testing.T) {
	tests := []struct {
		name      string
		endpoint  string
		pathStyle bool
		want      string
	}{
		{"virtual host", "", false, "https://media.s3.us-east-1.amazonaws.com"},
		{"path style", "", true, "https://s3.us-east-1.amazonaws.com/media"},
		{"custom endpoint", "minio.local:9000", true, "https://minio.local:9000/media"},
		{"custom endpoint with scheme", "http://minio.local/", false, "http://minio.local/media"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s3BucketURL(tt.endpoint, "us-east-1", "media", tt.pathStyle); got != tt.want {
				t.Fatalf("s3BucketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/out/a.PNG?sig=1", "png"},
		{"https://cdn.example.com/out/clip.mp4#t=1", "mp4"},
		{"https://cdn.example.com/tempfile/abc", "jpg"},
		{"https://cdn.example.com/out/file.exe", "jpg"},
	}
	for _, tt := range tests {
		if got := ExtensionFromURL(tt.url, "jpg"); got != tt.want {
			t.Fatalf("ExtensionFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestMediaKey(t *testing.T) {
	created := time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
	tests := []struct {
		name string
		obj  MediaObject
		want string
	}{
		{
			name: "image",
			obj:  MediaObject{MediaType: "image", Provider: "WaveSpeed", TaskID: "Task 42", Index: 1, Extension: ".PNG", CreatedAt: created},
			want: "image/2026/03/01/ai-image-wavespeed-20260301-task-42-1.png",
		},
		{
			name: "video without provider",
			obj:  MediaObject{MediaType: "video", TaskID: "abc", Extension: "mp4", CreatedAt: created},
			want: "video/2026/03/01/ai-video-generic-20260301-abc-0.mp4",
		},
		{
			name: "unknown extension",
			obj:  MediaObject{MediaType: "image", Provider: "kie", TaskID: "x/../y", CreatedAt: created},
			want: "image/2026/03/01/ai-image-kie-20260301-xy-0.bin",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MediaKey(tt.obj); got != tt.want {
				t.Fatalf("MediaKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType(MediaObject{ContentType: "image/webp", Extension: "png"}); got != "image/webp" {
		t.Fatalf("explicit content type should win, got %q", got)
	}
	if got := contentType(MediaObject{ContentType: "application/octet-stream", Extension: "png"}); got != "image/png" {
		t.Fatalf("octet-stream should fall back to the extension, got %q", got)
	}
	if got := contentType(MediaObject{Extension: "zzz"}); got != "application/octet-stream" {
		t.Fatalf("unknown extension = %q", got)
	}
}

func TestR2Endpoint(t *testing.T) {
	got, err := r2Endpoint("", "acc123")
	if err != nil || got != "https://acc123.r2.cloudflarestorage.com" {
		t.Fatalf("r2Endpoint() = %q, %v", got, err)
	}
	got, err = r2Endpoint(" https://r2.example.com ", "ignored")
	if err != nil || got != "https://r2.example.com" {
		t.Fatalf("explicit endpoint = %q, %v", got, err)
	}
	if _, err := r2Endpoint("", ""); err == nil {
		t.Fatal("expected error without endpoint and account id")
	}
}

func TestLocalStoragePutAndURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/files/")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	key, err := store.Put(context.Background(), MediaObject{
		MediaType: "image",
		Provider:  "kie",
		TaskID:    "task-42",
		Extension: "png",
		Data:      []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasPrefix(key, "image/") || !strings.HasSuffix(key, "-task-42-0.png") {
		t.Fatalf("unexpected key %q", key)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("saved content = %q", data)
	}
	if got := store.URL(key); got != "/files/"+key {
		t.Fatalf("URL() = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(filepath.Join(dir, filepath.FromSlash(key))))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestLocalStorageReusesExistingObject(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	obj := MediaObject{MediaType: "video", Provider: "fal", TaskID: "clip", Extension: "mp4", CreatedAt: time.Now()}

	obj.Data = []byte("first")
	first, err := store.Put(context.Background(), obj)
	if err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	obj.Data = []byte("second")
	second, err := store.Put(context.Background(), obj)
	if err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	if first != second {
		t.Fatalf("keys differ: %q vs %q", first, second)
	}
	data, _ := os.ReadFile(filepath.Join(dir, filepath.FromSlash(first)))
	if string(data) != "first" {
		t.Fatalf("existing object was overwritten: %q", data)
	}
}

func TestLocalStorageRejectsEmptyPayload(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	if _, err := store.Put(context.Background(), MediaObject{MediaType: "image"}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestLocalStorageHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, MediaObject{Data: []byte("x")}); err == nil {
		t.Fatal("expected context error")
	}
}
