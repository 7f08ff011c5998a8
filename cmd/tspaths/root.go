package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oxhq/tspaths/internal/config"
)

const argDir = "dir"

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "tspaths",
		Short:         "Resolve and rewrite TypeScript path aliases.",
		SilenceErrors: true,
		Long: `tspaths reads compilerOptions.paths and baseUrl from a tsconfig.json
(following extends), resolves aliased import specifiers the way a bundler
would, and can rewrite them into relative imports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString(argDir)
			cfg, err := config.Load(a.v, dir)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = config.NewLogger(errOut, cfg.Debug).WithField("@command", cmd.Name())
			if cfg.File != "" {
				a.log.WithField("file", cfg.File).Debug("config file loaded")
			}
			cmd.SilenceUsage = true
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringP(argDir, "C", ".", "Directory to run in.")
	flags.StringP(config.KeyProject, "p", "", "Path to tsconfig.json or the directory holding it. Searched upwards from --dir when empty.")
	flags.String(config.KeyConfig, "", "Config file to read instead of .tspaths.yaml.")
	flags.String(config.KeyDatabase, "", "History database: a file path or a libsql:// URL. You can also set TSPATHS_DB.")
	flags.Bool(config.KeyDebug, false, "Enable debug logging, including resolution steps.")
	flags.Int(config.KeyCacheSize, 0, "Number of file system lookups to cache, 0 disables the cache.")
	flags.StringSlice(config.KeyExtensions, nil, "Extensions probed when resolving, in order.")

	root.AddCommand(
		newMappingsCommand(a),
		newResolveCommand(a),
		newScanCommand(a),
		newRewriteCommand(a),
		newUndoCommand(a),
		newHistoryCommand(a),
		newWatchCommand(a),
		newServeCommand(a),
	)
	return root
}
