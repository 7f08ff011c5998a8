package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/core"
	"github.com/oxhq/tspaths/internal/config"
	"github.com/oxhq/tspaths/internal/rewrite"
	"github.com/oxhq/tspaths/models"
)

// stateDir never takes part in scans; it holds transaction backups.
const stateDir = "**/.tspaths/**"

// scanResult is what scan and rewrite share.
type scanResult struct {
	project   *project
	processor *core.FileProcessor
	summary   *core.Summary
	run       *models.Run
	collected *collector
}

func withScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice(config.KeyInclude, nil, "Glob patterns of files to scan, relative to the scanned directory.")
	cmd.Flags().StringSlice(config.KeyExclude, nil, "Glob patterns of files and directories to skip.")
	cmd.Flags().Bool(argRecord, false, "Store every aliased import in the history database.")
	cmd.Flags().Bool(argJSON, false, "Print JSON.")
}

// scan inspects every import under the directory in args (default --dir).
func (a *app) scan(cmd *cobra.Command, args []string, command string) (*scanResult, error) {
	p, err := a.loadProject(cmd.Context())
	if err != nil {
		return nil, err
	}
	root := ""
	if len(args) > 0 {
		root = args[0]
	}
	return a.scanProject(cmd.Context(), p, root, command)
}

// scanProject scans root, taken relative to --dir, with the mappings of p.
func (a *app) scanProject(ctx context.Context, p *project, root, command string) (*scanResult, error) {
	root = a.abs(root)

	c := &collector{}
	inspector := rewrite.NewInspector(p.table, p.pipeline, a.log.WithField("component", "inspect")).OnResolve(c.add)
	processor := core.NewFileProcessor(newRegistry(), a.txDir(), a.log)

	summary, err := processor.Process(ctx, core.FileScope{
		Path:    root,
		Include: a.cfg.Include,
		Exclude: append(append([]string{}, a.cfg.Exclude...), stateDir),
	}, inspector)
	if err != nil {
		return nil, err
	}

	run := models.NewRun(command, root, p.config.Path)
	run.FilesScanned = summary.FilesScanned
	run.Imports = summary.Imports
	run.Aliased = summary.Aliased
	run.Unresolved = summary.Unresolved

	a.log.WithFields(logrus.Fields{
		"files":      summary.FilesScanned,
		"imports":    summary.Imports,
		"aliased":    summary.Aliased,
		"unresolved": summary.Unresolved,
	}).Debug("scan complete")

	return &scanResult{project: p, processor: processor, summary: summary, run: run, collected: c}, nil
}

func (a *app) display(path string) string {
	if rel, err := filepath.Rel(a.cfg.Dir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

// printProblems lists unreadable files and unresolved aliased imports.
func (a *app) printProblems(summary *core.Summary) {
	for _, f := range summary.Files {
		if f.Error != "" {
			fmt.Fprintf(a.out, "%s  %s\n", a.display(f.Path), colorWarn.Sprint(f.Error))
		}
		for _, imp := range f.Unresolved() {
			fmt.Fprintf(a.out, "%s:%d:%d  %s (%s)  %s\n",
				a.display(f.Path), imp.Location.Line, imp.Location.Column,
				imp.Specifier, imp.Alias, colorError.Sprint(imp.Error))
		}
	}
}

func (a *app) printSummary(s *core.Summary) {
	fmt.Fprintf(a.out, "%d files, %d imports, %d aliased, %d unresolved\n",
		s.FilesScanned, s.Imports, s.Aliased, s.Unresolved)
}

func newScanCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Check that every aliased import under dir resolves.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.scan(cmd, args, "scan")
			if err != nil {
				return err
			}
			if record, _ := cmd.Flags().GetBool(argRecord); record {
				a.record(res.run, res.collected.resolutions())
			}

			if asJSON, _ := cmd.Flags().GetBool(argJSON); asJSON {
				if err := a.printJSON(res.summary); err != nil {
					return err
				}
				if res.summary.Unresolved > 0 {
					return errFailed
				}
				return nil
			}

			a.printProblems(res.summary)
			a.printSummary(res.summary)
			if res.summary.Unresolved > 0 {
				return fmt.Errorf("%d aliased imports could not be resolved", res.summary.Unresolved)
			}
			return nil
		},
	}
	withScopeFlags(cmd)
	return cmd
}
