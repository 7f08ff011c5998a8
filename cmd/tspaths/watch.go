package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/internal/paths"
	"github.com/oxhq/tspaths/internal/tsconfig"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the mappings whenever the tsconfig or a file it extends changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx)
		},
	}
}

// watch logs every reload until ctx is done.
func (a *app) watch(ctx context.Context) error {
	path, err := tsconfig.Find(a.cfg.Dir, a.cfg.Project)
	if err != nil {
		return err
	}

	w, err := tsconfig.NewWatcher(ctx, a.loader(), path, func(cfg *tsconfig.Config, table *paths.Table) {
		a.log.WithFields(logrus.Fields{
			"config":   cfg.Path,
			"files":    len(cfg.Files),
			"mappings": len(table.Mappings()),
			"active":   len(table.Active()),
		}).Info("mappings loaded")
	})
	if err != nil {
		return err
	}

	a.log.WithField("config", w.Config().Path).Info("watching")
	return w.Run(ctx)
}
