package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinydbg/dbgcon/internal/console/config"
	"github.com/tinydbg/dbgcon/internal/core"
	"github.com/tinydbg/dbgcon/internal/history"
	"github.com/tinydbg/dbgcon/pkg/quitter"
	"go.uber.org/zap"
)

// newTestConsole builds a Console around a fresh proxy whose original
// behavior records calls instead of unwinding.
func newTestConsole(t *testing.T, opts Options) (*Console, *[]any) {
	t.Helper()

	var originalCalls []any
	if opts.Proxy == nil {
		opts.Proxy = quitter.NewProxy(func(code any) {
			originalCalls = append(originalCalls, code)
		}, zap.NewNop())
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
		opts.Config.Banner = false
	}

	c, err := New(opts)
	require.NoError(t, err)
	return c, &originalCalls
}

// runSession runs one session in its own goroutine, as the server does, and
// returns the session error and everything written to the output.
func runSession(t *testing.T, c *Console, input string) (error, string) {
	t.Helper()

	var out bytes.Buffer
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(context.Background(), "test-session", strings.NewReader(input), &out)
	}()

	select {
	case err := <-errCh:
		return err, out.String()
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil, ""
	}
}

func TestNew(t *testing.T) {
	t.Run("requires a proxy", func(t *testing.T) {
		_, err := New(Options{})
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		proxy := quitter.NewProxy(quitter.SafeQuit, zap.NewNop())
		c, err := New(Options{Proxy: proxy})
		require.NoError(t, err)
		assert.NotNil(t, c.config)
		assert.NotNil(t, c.logger)
		assert.NotNil(t, c.quit)
		assert.False(t, c.startedAt.IsZero())
	})
}

func TestConsole_Run(t *testing.T) {
	t.Run("exit ends the session with the exit request", func(t *testing.T) {
		c, originalCalls := newTestConsole(t, Options{})

		err, _ := runSession(t, c, "exit\n")

		var req *quitter.ExitRequest
		require.True(t, errors.As(err, &req))
		assert.Nil(t, req.Code)
		assert.Equal(t, 0, req.ExitCode())
		assert.Empty(t, *originalCalls, "default quit must not reach the original behavior")
	})

	t.Run("exit with a code carries it", func(t *testing.T) {
		c, _ := newTestConsole(t, Options{})

		err, _ := runSession(t, c, "echo before\nexit 3\necho after\n")

		var req *quitter.ExitRequest
		require.True(t, errors.As(err, &req))
		assert.Equal(t, 3, req.ExitCode())
	})

	t.Run("exit with a message prints it", func(t *testing.T) {
		c, _ := newTestConsole(t, Options{})

		err, out := runSession(t, c, "exit going home\n")

		var req *quitter.ExitRequest
		require.True(t, errors.As(err, &req))
		assert.Equal(t, 1, req.ExitCode())
		assert.Contains(t, out, "going home")
	})

	t.Run("quit is an alias for exit", func(t *testing.T) {
		c, _ := newTestConsole(t, Options{})

		err, _ := runSession(t, c, "quit\n")

		var req *quitter.ExitRequest
		require.True(t, errors.As(err, &req))
		assert.Nil(t, req.Code)
	})

	t.Run("eof ends the session without an exit request", func(t *testing.T) {
		c, _ := newTestConsole(t, Options{})

		err, _ := runSession(t, c, "echo hello\n")
		assert.NoError(t, err)
	})

	t.Run("a custom quit behavior is used", func(t *testing.T) {
		var customCalls []any
		c, originalCalls := newTestConsole(t, Options{
			Quit: func(code any) {
				customCalls = append(customCalls, code)
				panic(&quitter.ExitRequest{Code: code})
			},
		})

		err, _ := runSession(t, c, "exit 7\n")

		var req *quitter.ExitRequest
		require.True(t, errors.As(err, &req))
		assert.Equal(t, []any{7}, customCalls)
		assert.Empty(t, *originalCalls)
	})

	t.Run("session unregisters its route on exit", func(t *testing.T) {
		c, originalCalls := newTestConsole(t, Options{})

		err, _ := runSession(t, c, "echo hi\n")
		require.NoError(t, err)

		// After the session ended, an invocation from a fresh goroutine
		// falls through to the original behavior.
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.proxy.Call("post-session")
		}()
		<-done

		assert.Equal(t, []any{"post-session"}, *originalCalls)
	})

	t.Run("banner is shown when enabled", func(t *testing.T) {
		cfg := config.DefaultConfig()
		c, _ := newTestConsole(t, Options{Config: cfg, Host: "payments"})

		_, out := runSession(t, c, "")
		assert.Contains(t, out, "payments debug console")
	})

	t.Run("concurrent sessions are independent", func(t *testing.T) {
		c, _ := newTestConsole(t, Options{})

		// Session A quits while session B keeps running; B must be able to
		// finish its own work and then quit with its own code.
		aErr, _ := runSession(t, c, "exit 1\n")
		bErr, bOut := runSession(t, c, "echo still alive\nexit 2\n")

		var aReq, bReq *quitter.ExitRequest
		require.True(t, errors.As(aErr, &aReq))
		require.True(t, errors.As(bErr, &bReq))
		assert.Equal(t, 1, aReq.ExitCode())
		assert.Equal(t, 2, bReq.ExitCode())
		assert.Contains(t, bOut, "still alive")
	})

	t.Run("cancelled context stops the session", func(t *testing.T) {
		c, _ := newTestConsole(t, Options{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		pr, _ := io.Pipe()
		defer pr.Close()

		var out bytes.Buffer
		errCh := make(chan error, 1)
		go func() {
			errCh <- c.Run(ctx, "cancelled", pr, &out)
		}()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("session did not observe cancellation")
		}
	})
}

func TestConsole_RunRecordsHistory(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	core.ResetPaths()
	t.Cleanup(core.ResetPaths)

	manager, err := history.NewManager(filepath.Join(tempDir, "history.db"))
	require.NoError(t, err)

	c, _ := newTestConsole(t, Options{History: manager})

	sessErr, _ := runSession(t, c, "echo one\nstatus\nexit\n")
	var req *quitter.ExitRequest
	require.True(t, errors.As(sessErr, &req))

	entries, err := manager.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "echo one", entries[0].Command)
	assert.Equal(t, "status", entries[1].Command)
	assert.Equal(t, "exit", entries[2].Command)
	assert.Equal(t, "test-session", entries[0].Session)
}
