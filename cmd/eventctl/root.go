package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
	"ms-registration/internal/registration"
	"ms-registration/internal/storage"
)

// app holds what the subcommands share. Tests fill store directly.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  *registration.Store
	closer func() error

	driver  string
	verbose bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "eventctl",
		Short:         "Manage campus event registrations",
		Long:          `eventctl reads and changes the same event and registration records the registration service uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger(cmd)
			return a.openStore(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.driver, "driver", "", "store driver (memory, redis, sqlite, postgres); defaults to STORE_DRIVER")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log storage activity to stderr")

	root.AddCommand(
		newEventsCmd(a),
		newRegistrationsCmd(a),
		newRegisterCmd(a),
		newResetCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Store.Driver = a.driver
	}
	a.cfg = cfg
	return nil
}

func (a *app) logger(cmd *cobra.Command) *logger.Logger {
	if a.log == nil {
		if a.verbose {
			a.log = logger.NewWriterLogger(cmd.ErrOrStderr())
		} else {
			a.log = logger.NewNopLogger()
		}
	}
	return a.log
}

func (a *app) openStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if a.log == nil {
		a.log = logger.NewNopLogger()
	}

	kv, err := storage.Open(ctx, a.cfg, a.log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	a.closer = kv.Close

	store := registration.NewStore(storage.NewAdapter(kv, a.cfg.Store.KeyPrefix), nil, nil, a.log)
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	a.store = store
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}
