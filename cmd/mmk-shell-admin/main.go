package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/bootstrap"
	"github.com/target/mmk-ui-shell/internal/ports"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

// sharedOpener returns the shared session used by shells and a func releasing it.
type sharedOpener func(ctx context.Context) (ports.SharedSession, func(), error)

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader

	openShared sharedOpener
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
		In:     os.Stdin,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"fetch-config": {
			name:        "fetch-config",
			description: "Fetch the remote configuration document and print its effective values",
			run:         runFetchConfig,
		},
		"session-status": {
			name:        "session-status",
			description: "Report whether the shared session flag is set (Redis backend)",
			run:         runSessionStatus,
		},
		"end-session": {
			name:        "end-session",
			description: "Clear the shared session flag and tell every shell instance to reload",
			run:         runEndSession,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: mmk-shell-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-24s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func (c *commandContext) shared() (ports.SharedSession, func(), error) {
	if c.openShared != nil {
		return c.openShared(c.Ctx)
	}
	return openRedisShared(c)
}

//nolint:ireturn // callers depend on the ports interface.
func openRedisShared(c *commandContext) (ports.SharedSession, func(), error) {
	if c.Config.Session.Backend != config.SessionBackendRedis {
		return nil, nil, fmt.Errorf(
			"session commands need SESSION_BACKEND=redis; the %q backend lives inside each shell process",
			c.Config.Session.Backend,
		)
	}
	client, err := bootstrap.ConnectRedis(c.Ctx, bootstrap.RedisConfig{Redis: c.Config.Redis, Logger: c.Logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	shared, release, err := bootstrap.BuildSharedSession(bootstrap.SharedSessionConfig{
		Session: c.Config.Session,
		Redis:   client,
		Logger:  c.Logger,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return shared, func() {
		release()
		if cerr := client.Close(); cerr != nil {
			c.Logger.Warn("close redis failed", "error", cerr)
		}
	}, nil
}

func confirmAction(c *commandContext, prompt string) error {
	if err := writef(c.Out, "%s Continue? [y/N]: ", prompt); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	reader := bufio.NewReader(c.In)
	resp, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
