package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

// logSetup owns the CLI logger. Level can be raised after construction, e.g.
// when a config file enables verbose output.
type logSetup struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
	file   *os.File
}

func (l *logSetup) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func newLogSetup(cmd *cobra.Command) (*logSetup, error) {
	flags := cmd.Flags()
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	format, err := flags.GetString("log-format")
	if err != nil {
		return nil, err
	}
	file, err := flags.GetString("log-file")
	if err != nil {
		return nil, err
	}
	return buildLogging(cmd.ErrOrStderr(), format, strings.TrimSpace(file), verbose)
}

// buildLogging fans out to stderr and, optionally, a JSON log file that
// always records debug output.
func buildLogging(stderr io.Writer, format, file string, verbose bool) (*logSetup, error) {
	level := new(slog.LevelVar)
	if verbose {
		level.Set(slog.LevelDebug)
	}
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		console = slog.NewTextHandler(stderr, opts)
	case "json":
		console = slog.NewJSONHandler(stderr, opts)
	default:
		return nil, newUsageError(fmt.Sprintf("unsupported --log-format %q (allowed: text, json)", format))
	}

	setup := &logSetup{Level: level}
	handlers := []slog.Handler{console}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("open --log-file %q: %v", file, err))
		}
		setup.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	setup.Logger = slog.New(slogmulti.Fanout(handlers...))
	return setup, nil
}

type logSetupKey struct{}

func withLogSetup(ctx context.Context, l *logSetup) context.Context {
	return context.WithValue(ctx, logSetupKey{}, l)
}

// logsFrom returns the CLI logging setup, or a discarding one when the
// command ran without the root's pre-run hook (as in runner tests).
func logsFrom(ctx context.Context) *logSetup {
	if ctx != nil {
		if l, ok := ctx.Value(logSetupKey{}).(*logSetup); ok && l != nil {
			return l
		}
	}
	return &logSetup{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Level: new(slog.LevelVar)}
}
