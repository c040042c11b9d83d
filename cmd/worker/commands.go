package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnovikov/ironio-oauth/auth"
	"github.com/dnovikov/ironio-oauth/environment"
	"github.com/dnovikov/ironio-oauth/internal/config"
	"github.com/dnovikov/ironio-oauth/payload"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/dnovikov/ironio-oauth/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flags struct {
	payloadFile   string
	payloadString string
	configFile    string
	taskID        string
	callbackURL   string
	noBanner      bool
}

func newRootCmd(c config.Config) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "ironio-oauth",
		Short: "Complete an OAuth2 authorization-code handshake as an IronWorker task",
		Long: `Runs one step of the OAuth2 authorization-code handshake.

The first task starts the redirect to the provider. The provider calls the
worker webhook back with a code, which queues a second task that exchanges the
code for an access token, stores it and requests the callback URL with it.

Examples:
  ironio-oauth -payload payload.json -config config.yml -id 5f1e
  ironio-oauth --payload-string 'env=prod&code=abc' --config config.toml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if f.taskID == "" {
				f.taskID = uuid.NewString()
			}
			log.Logger = log.With().Str("task_id", f.taskID).Logger()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !f.noBanner {
				displayAppname(c.GetAppName())
			}
			return runWorker(cmd.Context(), c, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "Environment configuration file (.yml, .yaml, .json or .toml)")
	pf.StringVar(&f.taskID, "id", "", "Task id, added to every log line")
	pf.StringVar(&f.payloadFile, "payload", "", "Payload file written by IronWorker")
	pf.StringVar(&f.payloadString, "payload-string", "", "URL-encoded payload, e.g. env=prod&code=abc")
	pf.StringVar(&f.callbackURL, "callback", c.GetCallbackURL(), "URL requested with the access token once authorized")
	pf.BoolVar(&f.noBanner, "no-banner", false, "Do not print the banner")
	// IronWorker also passes -d <task dir>.
	pf.StringP("task-dir", "d", "", "Task directory (ignored)")
	_ = pf.MarkHidden("task-dir")

	root.AddCommand(newURLCmd(c, f), newTokenCmd(c))
	return root
}

// longFlagNames lists every long flag of cmd and its children.
func longFlagNames(cmd *cobra.Command) map[string]bool {
	names := make(map[string]bool)
	var walk func(*cobra.Command)
	walk = func(cmd *cobra.Command) {
		visit := func(fl *pflag.Flag) {
			if len(fl.Name) > 1 {
				names[fl.Name] = true
			}
		}
		cmd.PersistentFlags().VisitAll(visit)
		cmd.Flags().VisitAll(visit)
		for _, child := range cmd.Commands() {
			walk(child)
		}
	}
	walk(cmd)
	return names
}

func loadPayload(f *flags) (payload.Payload, error) {
	switch {
	case f.payloadString != "":
		return payload.ParseString(f.payloadString)
	case f.payloadFile != "":
		return payload.LoadFile(f.payloadFile)
	}
	return payload.Payload{}, &payload.ParseError{Reason: "no payload given; use --payload or --payload-string"}
}

func loadEnvironment(f *flags) (*environment.Config, error) {
	if f.configFile == "" {
		return nil, errors.New("--config is required")
	}
	return config.LoadEnvironmentFile(f.configFile)
}

func newWorker(c config.Config, f *flags, store token.Store) (*worker.Worker, error) {
	p, err := loadPayload(f)
	if err != nil {
		return nil, err
	}
	cfg, err := loadEnvironment(f)
	if err != nil {
		return nil, err
	}
	return worker.New(cfg, p, store,
		worker.WithServiceID(c.GetServiceID()),
		worker.WithWritePolicy(c.GetWritePolicy()),
		worker.WithRequireState(c.GetRequireState()),
		worker.WithStateTTL(c.GetStateTTL()),
		worker.WithHTTPClient(auth.DefaultHTTPClient(c.GetHTTPTimeout())),
	)
}

func runWorker(ctx context.Context, c config.Config, f *flags) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	w, err := newWorker(c, f, store)
	if err != nil {
		return err
	}
	log.Info().Str("env", w.Payload().Env).Bool("has_code", w.Payload().HasAuthorizationCode()).Msg("Worker started")

	result, err := w.Run(ctx, f.callbackURL)
	if err != nil {
		return err
	}
	log.Info().Stringer("state", result.State).Msg("Worker finished")
	if len(result.Body) > 0 {
		_, err = os.Stdout.Write(append(result.Body, '\n'))
	}
	return err
}

func newURLCmd(c config.Config, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL for the payload's environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := newWorker(c, f, noStore{})
			if err != nil {
				return err
			}
			u, err := w.Client().AuthorizationURL()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newTokenCmd(c config.Config) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or clear the stored access token",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored token as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openStore(c)
			if err != nil {
				return err
			}
			defer closeStore()

			tok, err := store.Get(c.GetServiceID())
			if errors.Is(err, token.ErrNotFound) {
				return fmt.Errorf("no token stored for %q", c.GetServiceID())
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*token.Token
				ExpiresAt string `json:"expires_at,omitempty"`
				Expired   bool   `json:"expired"`
			}{tok, formatExpiry(tok), tok.IsExpired()})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored token so the next task starts a new handshake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openStore(c)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(c.GetServiceID()); err != nil {
				return err
			}
			log.Info().Str("service", c.GetServiceID()).Msg("Token cleared")
			return nil
		},
	}

	tokenCmd.AddCommand(showCmd, clearCmd)
	return tokenCmd
}

func formatExpiry(tok *token.Token) string {
	exp := tok.ExpiresAt()
	if exp.IsZero() {
		return ""
	}
	return exp.UTC().Format(time.RFC3339)
}

// noStore reports no token, so building a worker for "url" touches no storage.
type noStore struct{}

func (noStore) Has(string) (bool, error) { return false, nil }
func (noStore) Get(string) (*token.Token, error) { return nil, token.ErrNotFound }
func (noStore) Put(string, *token.Token) error { return errReadOnly }
func (noStore) Delete(string) error { return nil }

func (noStore) PutIfAbsent(string, *token.Token) (bool, error) { return false, errReadOnly }

var errReadOnly = errors.New("read-only store")
