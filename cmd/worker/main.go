package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/dnovikov/ironio-oauth/internal/config"
	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/dnovikov/ironio-oauth/token/filestore"
	"github.com/dnovikov/ironio-oauth/token/memstore"
	"github.com/dnovikov/ironio-oauth/token/sqlitestore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("Worker failed")
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(c); err != nil {
		return err
	}

	root := newRootCmd(c)
	root.SetArgs(normalizeArgs(args, longFlagNames(root)))
	return root.Execute()
}

// setupLogging configures the global zerolog logger.
func setupLogging(c config.EnvConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.GetLogLevel(), err)
	}
	zerolog.SetGlobalLevel(level)

	switch c.GetLogFormat() {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "console", "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	default:
		return fmt.Errorf("invalid log format %q", c.GetLogFormat())
	}
	return nil
}

// openStore builds the configured token store. The returned close function is
// never nil.
func openStore(c config.StoreConfig) (token.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.GetStoreKind() {
	case config.StoreMemory:
		return memstore.New(), noop, nil
	case config.StoreFile:
		s, err := filestore.New(c.GetStorePath())
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.StoreSQLite:
		s, err := sqlitestore.Open(c.GetStorePath())
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, ierrors.Wrapf(ierrors.ErrUnsupported, "token store %q", c.GetStoreKind())
}

// normalizeArgs rewrites single-dash long flags such as "-payload" to
// "--payload". IronWorker starts tasks with that style.
func normalizeArgs(args []string, long map[string]bool) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			name, _, _ := strings.Cut(arg[1:], "=")
			if long[name] {
				arg = "-" + arg
			}
		}
		out = append(out, arg)
	}
	return out
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(os.Stderr, myFigure.String())
}
