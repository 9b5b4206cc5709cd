package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/storage"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediaPersisterShouldPersist(t *testing.T) {
	m := NewMediaPersister(nil, []string{"wavespeed", " CloudFront.net "}, 1)
	defer m.Stop()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://d1q70pf5vjeyhc.cloudfront.net/p1/0.png", true},
		{"https://cdn.wavespeed.ai/out.png", true},
		{"https://replicate.example.com/api/predictions/abc/output.png", true},
		{"data:image/png;base64,AAAA", true},
		{"https://cdn.example.com/permanent.png", false},
		{"ftp://files.example.com/a.png", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.ShouldPersist(tt.url); got != tt.want {
			t.Errorf("ShouldPersist(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestMediaPersisterCopiesTemporaryURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.png") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png:" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/files")
	require.NoError(t, err)

	m := NewMediaPersister(store, []string{"127.0.0.1"}, 2)
	defer m.Stop()

	urls := []string{
		server.URL + "/out/0.png",
		"https://cdn.example.com/keep.png",
		server.URL + "/out/missing.png",
		"data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("inline")),
	}
	result := m.Persist(context.Background(), PersistRequest{
		TaskID:    "task-1",
		Provider:  "wavespeed",
		MediaType: entity.MediaImage,
		URLs:      urls,
	})

	require.Equal(t, 2, result.Persisted)
	require.Len(t, result.Errors, 1)
	require.Len(t, result.URLs, 4)

	require.True(t, strings.HasPrefix(result.URLs[0], "/files/image/"))
	require.True(t, strings.HasSuffix(result.URLs[0], "-task-1-0.png"))
	require.Equal(t, urls[1], result.URLs[1])
	require.Equal(t, urls[2], result.URLs[2])
	require.True(t, strings.HasSuffix(result.URLs[3], "-task-1-3.webp"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(result.URLs[0], "/files/"))))
	require.NoError(t, err)
	require.Equal(t, "png:/out/0.png", string(data))
}

func TestMediaPersisterWithoutStorageKeepsURLs(t *testing.T) {
	var m *MediaPersister
	result := m.Persist(context.Background(), PersistRequest{URLs: []string{"https://cdn.wavespeed.ai/a.png"}})
	require.Equal(t, []string{"https://cdn.wavespeed.ai/a.png"}, result.URLs)
	require.Zero(t, result.Persisted)
}
