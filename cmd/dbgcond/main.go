// Command dbgcond is a demo host for the embeddable debug console. It runs a
// trivial background workload, serves the console on a unix socket, and (when
// stdin is a terminal) also attaches a local console session.
//
// Quitting a socket session ends only that session. Quitting the local
// session shuts the whole host down, carrying the exit code through.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinydbg/dbgcon/internal/console"
	"github.com/tinydbg/dbgcon/internal/console/config"
	"github.com/tinydbg/dbgcon/internal/core"
	"github.com/tinydbg/dbgcon/internal/history"
	"github.com/tinydbg/dbgcon/internal/server"
	"github.com/tinydbg/dbgcon/pkg/quitter"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var BUILD_VERSION = "dev"

var socketFlag = flag.String("socket", "", "unix socket to serve the console on")
var hostFlag = flag.String("host", "dbgcond", "host name shown in the console banner")
var versionFlag = flag.Bool("ver", false, "display build version")

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	// Load the console configuration
	loader := config.NewLoader(nil)
	loadResult, err := loader.LoadFromFile(core.ConfigFile())
	if err != nil {
		panic(err)
	}
	cfg := loadResult.Config

	// Initialize the logger
	logger, err := initializeLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // Flush any buffered log entries

	for _, cfgErr := range loadResult.Errors {
		logger.Warn("config problem", zap.Error(cfgErr))
	}

	logger.Info("-------- new dbgcond session --------", zap.Any("args", os.Args))

	// Initialize the history manager
	historyManager, err := history.NewManager(core.HistoryFile())
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
		historyManager = nil
	}

	// The proxy wraps the host's real quit: unwind with the exit request,
	// which main converts into process termination. Sessions that want to
	// survive their own quit register SafeQuit on top of this.
	proxy := quitter.NewProxy(func(code any) {
		panic(&quitter.ExitRequest{Code: code})
	}, logger)

	err = run(proxy, historyManager, cfg, logger)

	// Handle exit status
	var req *quitter.ExitRequest
	if errors.As(err, &req) {
		if _, isInt := req.Code.(int); req.Code != nil && !isInt {
			fmt.Fprintln(os.Stderr, req.Code)
		}
		os.Exit(req.ExitCode())
	}

	if err != nil {
		logger.Error("unhandled error", zap.Error(err))
		os.Exit(1)
	}
}

func run(
	proxy *quitter.Proxy,
	historyManager *history.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := console.New(console.Options{
		Proxy:     proxy,
		Config:    cfg,
		History:   historyManager,
		Logger:    logger,
		Host:      *hostFlag,
		Version:   BUILD_VERSION,
		StartedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize console: %w", err)
	}

	socketPath := *socketFlag
	if socketPath == "" {
		socketPath = cfg.Socket
	}
	if socketPath == "" {
		socketPath = core.DefaultSocket()
	}

	srv, err := server.New(c, socketPath, logger)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	defer srv.Close()

	go doWork(ctx, logger)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()
	fmt.Printf("console available on %s\n", socketPath)

	// With a terminal attached, also run a local session. Quitting it
	// returns the exit request to main, which terminates the host with the
	// carried code; an EOF leaves the socket server running.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if err := runLocalSession(ctx, c); err != nil {
			return err
		}
	}

	return <-serveErr
}

// runLocalSession runs a console session on stdio in its own goroutine, the
// same way the server runs socket sessions.
func runLocalSession(ctx context.Context, c *console.Console) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(ctx, "local", os.Stdin, os.Stdout)
	}()
	return <-errCh
}

// doWork is a stand-in for the host's real workload.
func doWork(ctx context.Context, logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("heartbeat")
		}
	}
}

func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if BUILD_VERSION == "dev" {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = level
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}

	return loggerConfig.Build()
}
