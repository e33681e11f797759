package configwatcher

import (
	"context"
	"examhub_backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  mode: debug\nstorage:\n  type: minio\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *config.Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, path, func(cfg *config.Config) {
			select {
			case got <- cfg:
			default:
			}
		})
	}()

	// 给 watcher 注册目录留出时间
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  mode: release\njwt:\n  secret: 0123456789abcdef0123456789abcdef\nstorage:\n  type: minio\n"), 0644))

	select {
	case cfg := <-got:
		require.Equal(t, "release", cfg.Server.Mode)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
}
