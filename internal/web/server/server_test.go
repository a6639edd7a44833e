package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Address: ":0"})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig(http.NotFoundHandler())
	assert.Equal(t, ":8080", config.Address)
	assert.Equal(t, 30*time.Second, config.ShutdownTimeout)
	assert.Equal(t, 1<<20, config.MaxHeaderBytes)
}

func TestRunAndShutdown(t *testing.T) {
	config := DefaultConfig(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	config.Address = "127.0.0.1:0"
	config.ShutdownTimeout = time.Second

	srv, err := New(config)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	var hooks []string
	srv.OnShutdown(func(ctx context.Context) error {
		hooks = append(hooks, "store")
		return nil
	})
	srv.OnShutdown(func(ctx context.Context) error {
		hooks = append(hooks, "cache")
		return errors.New("cache close failed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.ErrorContains(t, err, "cache close failed")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, []string{"store", "cache"}, hooks)
}

func TestRun_ListenFailure(t *testing.T) {
	first, err := New(&Config{Address: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	require.NoError(t, first.Listen())
	defer first.Shutdown()

	second, err := New(&Config{Address: first.Addr(), Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.Error(t, second.Run(context.Background()))
}
