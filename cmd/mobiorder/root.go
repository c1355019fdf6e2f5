package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/api"
	"github.com/mobiorder/mobiorder/internal/cart"
	"github.com/mobiorder/mobiorder/internal/config"
	"github.com/mobiorder/mobiorder/internal/logging"
	"github.com/mobiorder/mobiorder/internal/notes"
	"github.com/mobiorder/mobiorder/internal/session"
	"github.com/mobiorder/mobiorder/internal/store"
	syncer "github.com/mobiorder/mobiorder/internal/sync"
	"github.com/mobiorder/mobiorder/internal/visibility"
)

// app bundles everything a command needs. Built once in the persistent
// pre-run, torn down in the persistent post-run.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	client   *api.Client
	sess     *session.Session
	orch     *syncer.Orchestrator
	resolver *visibility.Resolver
	carts    *cart.Manager
	outbox   *notes.Outbox
}

var a *app

var rootCmd = &cobra.Command{
	Use:   "mobiorder",
	Short: "Offline-first ordering client for field sales agents",
	Long: `mobiorder keeps a local replica of the product catalog, prices and
customer data in SQLite, lets agents build orders and visit notes while
offline, and pushes the outbox to the server whenever a connection is
available.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardown()
	},
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	// Local-only tables must exist before any command runs, so a fresh
	// install can queue carts and notes without a sync first.
	if err := st.InitSchema(cmd.Context()); err != nil {
		st.Close()
		return fmt.Errorf("init schema: %w", err)
	}

	sess, err := session.Open(cfg.SessionPath, log)
	if err != nil {
		st.Close()
		return fmt.Errorf("open session: %w", err)
	}

	client := api.NewClient(cfg.APIURL, cfg.APITimeout, log)
	if cred, ok := sess.Credential(); ok {
		client.SetToken(cred.Token)
	}

	a = &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		client:   client,
		sess:     sess,
		orch:     syncer.NewOrchestrator(st, client, log),
		resolver: visibility.NewResolver(st, log),
		carts:    cart.NewManager(st, client, log),
		outbox:   notes.NewOutbox(st, client, log),
	}
	return nil
}

func teardown() error {
	if a == nil {
		return nil
	}
	_ = a.log.Sync()
	return a.store.Close()
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(customerCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(visibilityCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
}
