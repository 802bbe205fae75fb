// Package redistest runs a throwaway Redis server for integration tests.
package redistest

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gantryq/gantry/pkg/exectest"
)

// Redis is an ephemeral Redis server with a connected client.
type Redis struct {
	Client *redis.Client

	bg *exectest.Background
}

// NewRedis spawns a Redis server on a Unix socket and connects a client.
func NewRedis(ctx context.Context, t testing.TB) *Redis {
	socket := filepath.Join(t.TempDir(), "redis.sock")
	cmd := exec.CommandContext(ctx, "redis-server",
		"--port", "0",
		"--unixsocket", socket,
		"--unixsocketperm", "700",
		"--save", "",
		"--appendonly", "no")
	bg := exectest.NewBackground(t, cmd)
	bg.Name = "redis"
	bg.LogStderr = true
	bg.Start()
	client := redis.NewClient(&redis.Options{
		Network: "unix",
		Addr:    socket,
	})
	// Poll until the server accepts connections.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var pingErr error
	for try := 0; try < 50; try++ {
		if try > 0 {
			select {
			case <-ticker.C:
			case <-bg.Done():
				t.Fatal("Redis exited during startup:", bg.Err())
			}
		}
		pingErr = client.Ping(ctx).Err()
		if errors.Is(pingErr, redis.ErrClosed) || errors.Is(pingErr, os.ErrNotExist) {
			continue // socket not there yet
		} else if pingErr != nil {
			t.Fatal("Failed to ping Redis:", pingErr)
		}
		t.Log("redistest: Redis is up")
		return &Redis{Client: client, bg: bg}
	}
	t.Fatal("Redis did not come up:", pingErr)
	return nil
}

// Close disconnects the client and tears down the server.
func (r *Redis) Close(t testing.TB) {
	if err := r.Client.Close(); err != nil {
		t.Log("redistest: Failed to close client:", err)
	}
	r.bg.Close()
}
