// Package console implements the embeddable debug console. A Console is
// created once per host process and can run any number of sessions, each
// bound to its own reader/writer pair (a socket connection or stdio) and its
// own goroutine.
//
// Every session registers a quit behavior with the shared quitter.Proxy on
// entry and unregisters on exit, so that quitting inside a session unwinds
// only that session.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tinydbg/dbgcon/internal/console/config"
	"github.com/tinydbg/dbgcon/internal/console/render"
	"github.com/tinydbg/dbgcon/internal/history"
	"github.com/tinydbg/dbgcon/pkg/quitter"
	"go.uber.org/zap"
)

// Options configures a Console.
type Options struct {
	// Proxy is the shared quit proxy installed by the host. Required.
	Proxy *quitter.Proxy

	// Quit is the behavior each session registers on entry. Defaults to
	// quitter.SafeQuit.
	Quit quitter.Behavior

	// Config holds the console configuration. Defaults to config.DefaultConfig().
	Config *config.Config

	// History records executed commands. Optional.
	History *history.Manager

	// Logger is used for diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// Host, Version and StartedAt describe the embedding process for the
	// banner and the status builtin.
	Host      string
	Version   string
	StartedAt time.Time
}

// Console runs debug sessions against a shared quit proxy.
type Console struct {
	proxy     *quitter.Proxy
	quit      quitter.Behavior
	config    *config.Config
	history   *history.Manager
	logger    *zap.Logger
	host      string
	version   string
	startedAt time.Time
}

// New creates a Console. The proxy is required; everything else has
// defaults.
func New(opts Options) (*Console, error) {
	if opts.Proxy == nil {
		return nil, fmt.Errorf("console requires a quit proxy")
	}
	if opts.Quit == nil {
		opts.Quit = quitter.SafeQuit
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}

	return &Console{
		proxy:     opts.Proxy,
		quit:      opts.Quit,
		config:    opts.Config,
		history:   opts.History,
		logger:    opts.Logger,
		host:      opts.Host,
		version:   opts.Version,
		startedAt: opts.StartedAt,
	}, nil
}

// session is the per-connection state handed to builtin commands.
type session struct {
	console *Console
	name    string
	out     io.Writer
	started time.Time
}

// Run executes one session named name on the given reader/writer until the
// input is exhausted or a quit behavior unwinds it. It must be called from
// the goroutine dedicated to the session.
//
// When the session ends because a quit behavior fired, Run returns the
// *quitter.ExitRequest that unwound it; callers can extract the exit code
// with errors.As. A session that ends by EOF returns nil.
func (c *Console) Run(ctx context.Context, name string, r io.Reader, w io.Writer) error {
	c.proxy.Register(c.quit)
	defer c.proxy.Unregister()

	c.logger.Info("console session started", zap.String("session", name))

	s := &session{
		console: c,
		name:    name,
		out:     w,
		started: time.Now(),
	}

	if c.config.Banner {
		render.RenderBanner(w, render.BannerInfo{
			Host:      c.host,
			Version:   c.version,
			StartedAt: c.startedAt,
			Session:   name,
		})
	}

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(w, render.PromptStyle.Render(c.config.Prompt))
		if !scanner.Scan() {
			break
		}

		if err := c.evalLine(s, scanner.Text()); err != nil {
			if req, ok := quitter.AsExitRequest(err); ok {
				c.logger.Info("console session exiting",
					zap.String("session", name),
					zap.Int("code", req.ExitCode()))
				// A non-integer payload is a parting message, printed the
				// way the platform's own exit does it.
				if _, isInt := req.Code.(int); req.Code != nil && !isInt {
					fmt.Fprintln(w, render.ErrorStyle.Render(fmt.Sprint(req.Code)))
				}
				return req
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading session input: %w", err)
	}

	c.logger.Info("console session ended", zap.String("session", name))
	return nil
}

// evalLine dispatches one input line. A quit behavior unwinding the
// evaluation is converted into the returned error; any other panic
// propagates.
func (c *Console) evalLine(s *session, line string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			req, ok := quitter.AsExitRequest(recovered)
			if !ok {
				panic(recovered)
			}
			err = req
		}
	}()

	if c.history != nil && line != "" {
		if _, herr := c.history.Append(line, s.name); herr != nil {
			c.logger.Debug("failed to record history", zap.Error(herr))
		}
	}

	return c.dispatch(s, line)
}
