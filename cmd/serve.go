// File: cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/confirm"
	"github.com/entityops/einfiler/internal/crm"
	"github.com/entityops/einfiler/internal/export"
	"github.com/entityops/einfiler/internal/observability"
	"github.com/entityops/einfiler/internal/service"
	"github.com/entityops/einfiler/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and process filing requests.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := observability.GetLogger()

		deps, cleanup, err := buildDependencies(ctx, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		server := service.NewServer(cfg.Server, logger, deps.runner, deps.decisions,
			deps.fetcher, deps.artifacts, deps.history)
		return server.Serve(ctx)
	},
}

// dependencies is the wired run pipeline shared by serve and run.
type dependencies struct {
	runner    *service.Runner
	decisions *confirm.Store
	fetcher   service.CaseFetcher
	artifacts service.Artifacts
	history   service.RunHistory
}

// buildDependencies assembles the runner and its optional collaborators
// from the loaded configuration. Disabled features stay nil so their
// endpoints report as unavailable instead of failing mid-run.
func buildDependencies(ctx context.Context, logger *zap.Logger) (*dependencies, func(), error) {
	deps := &dependencies{
		decisions: confirm.NewStore(cfg.Wizard.ConfirmationTimeout, logger),
	}
	cleanup := func() {}

	var notifier service.CompletionNotifier
	if n := crm.NewNotifier(cfg.Callback, logger); n.Enabled() {
		notifier = n
	}

	var artifact service.Artifact
	if cfg.Export.Enabled {
		exporter := export.NewExporter(cfg.Export, logger)
		artifact = exporter
		deps.artifacts = exporter
	}

	if cfg.Salesforce.ClientID != "" {
		querier, err := crm.NewQuerier(cfg.Salesforce)
		if err != nil {
			return nil, nil, fmt.Errorf("salesforce setup: %w", err)
		}
		deps.fetcher = salesforceFetcher{q: querier, object: cfg.Salesforce.Object}
	}

	var history service.RunStore
	if cfg.Store.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database setup: %w", err)
		}
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		history = st
		deps.history = st
		cleanup = pool.Close
	}

	sessions := service.ChromeSessionFactory(cfg.Browser, logger)
	deps.runner = service.NewRunner(cfg, logger, sessions, deps.decisions, notifier, artifact, history)
	return deps, cleanup, nil
}

// salesforceFetcher binds the configured SObject name onto the query path.
type salesforceFetcher struct {
	q      crm.Querier
	object string
}

func (f salesforceFetcher) FetchCase(ctx context.Context, recordID string) (schemas.CaseRecord, error) {
	return crm.FetchCase(ctx, f.q, f.object, recordID)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
