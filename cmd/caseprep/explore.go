package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperr "caseprep/internal/errors"
	"caseprep/internal/metrics"
	"caseprep/internal/tui"
)

func newExploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore --case ID --question ID [-n N]",
		Short: "Interactively query past answers for one question",
		Args:  cobra.NoArgs,
		RunE:  runExplore,
	}
	addScopeFlags(cmd)
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. 127.0.0.1:9464) while the console runs")
	return cmd
}

func runExplore(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		stop, err := serveMetrics(a, addr)
		if err != nil {
			return err
		}
		defer stop()
	}

	store, err := a.store()
	if err != nil {
		return err
	}
	stats, err := store.Warm(cmd.Context())
	if err != nil {
		return err
	}

	scope, n := a.scopeFlags(cmd)
	summary := fmt.Sprintf("%d past answers, %d-dim %s index, %s embedder, top %d",
		stats.Vectors, stats.Dimension, stats.Metric, stats.Embedder, n)

	m := tui.New(cmd.Context(), store, scope, n, summary)
	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen()).Run()
	return err
}

// serveMetrics exposes the collectors on addr in the background and returns
// a function that shuts the listener down.
func serveMetrics(a *app, addr string) (func(), error) {
	srv, err := metrics.Listen(addr)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreConfigInvalid, "listening for metrics on "+addr)
	}
	a.log.Info("serving metrics", zap.String("addr", srv.Addr()), zap.String("path", metrics.Path))
	go func() {
		if err := srv.Serve(); err != nil {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
