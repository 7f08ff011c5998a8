package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/mcp"
	"github.com/oxhq/tspaths/models"
	"github.com/oxhq/tspaths/resolver"
)

const (
	argFrom   = "from"
	argTrace  = "trace"
	argRecord = "record"
	argJSON   = "json"
)

func newResolveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <specifier>...",
		Short: "Resolve specifiers as if imported from a file in --from.",
		Args:  cobra.MinimumNArgs(1),
		Example: `  tspaths resolve @app/widgets/button
  tspaths resolve --from src/pages --trace @components/header`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject(cmd.Context())
			if err != nil {
				return err
			}

			from, _ := cmd.Flags().GetString(argFrom)
			from = a.abs(from)
			showTrace, _ := cmd.Flags().GetBool(argTrace)
			record, _ := cmd.Flags().GetBool(argRecord)
			asJSON, _ := cmd.Flags().GetBool(argJSON)

			run := models.NewRun("resolve", from, p.config.Path)
			var (
				results     []mcp.Resolution
				resolutions []models.Resolution
			)
			for _, spec := range args {
				r := p.resolve(cmd.Context(), from, spec)
				results = append(results, r)
				resolutions = append(resolutions, recordOf(from, r))

				run.Imports++
				if r.Alias != "" {
					run.Aliased++
				}
				if r.Error != "" {
					run.Unresolved++
				}
			}
			if record {
				a.record(run, resolutions)
			}

			if asJSON {
				if err := a.printJSON(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					a.printResolution(r, showTrace)
				}
			}

			if run.Unresolved > 0 {
				if asJSON {
					return errFailed
				}
				return fmt.Errorf("%d of %d specifiers could not be resolved", run.Unresolved, len(args))
			}
			return nil
		},
	}

	cmd.Flags().String(argFrom, "", "Directory the specifiers are imported from (default --dir).")
	cmd.Flags().Bool(argTrace, false, "Show the steps that led to each result.")
	cmd.Flags().Bool(argRecord, false, "Store the results in the history database.")
	cmd.Flags().Bool(argJSON, false, "Print JSON.")
	return cmd
}

// abs anchors a user supplied directory at --dir.
func (a *app) abs(dir string) string {
	switch {
	case dir == "":
		return a.cfg.Dir
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(a.cfg.Dir, dir)
	}
}

// resolve resolves spec from dir and reports the alias that applied.
func (p *project) resolve(ctx context.Context, from, spec string) mcp.Resolution {
	r := mcp.Resolution{Specifier: spec}
	if m, ok := p.table.Match(resolver.NewRequest(from, spec).InnerRequest()); ok {
		r.Alias = m.Mapping.Alias
	}

	res, err := p.pipeline.Resolve(ctx, from, spec)
	switch {
	case err == nil:
		r.Status = mcp.StatusResolved
		r.Path, r.Trace = res.Path+res.Query, res.Trace
		return r
	case errors.Is(err, resolver.ErrSuppressed):
		r.Status = mcp.StatusSuppressed
	case errors.Is(err, resolver.ErrNotFound):
		r.Status = mcp.StatusNotFound
	default:
		r.Status = mcp.StatusFailed
	}
	r.Error = err.Error()
	return r
}

func recordOf(from string, r mcp.Resolution) models.Resolution {
	rec := resolution(from, r.Specifier, r.Alias, r.Trace)
	switch {
	case r.Alias == "":
		rec.Status = models.StatusExternal
	case r.Error != "":
		rec.Status = models.StatusUnresolved
	default:
		rec.Status = models.StatusResolved
	}
	rec.Path, rec.Error = r.Path, r.Error
	return rec
}

func (a *app) printResolution(r mcp.Resolution, showTrace bool) {
	label := r.Specifier
	if r.Alias != "" {
		label = fmt.Sprintf("%s (%s)", r.Specifier, r.Alias)
	}

	if r.Error != "" {
		fmt.Fprintf(a.out, "%s  %s  %s\n", label, colorError.Sprint(r.Status), r.Error)
		return
	}

	fmt.Fprintf(a.out, "%s  %s\n", label, colorOK.Sprint(r.Path))
	if showTrace {
		for _, line := range r.Trace {
			fmt.Fprintf(a.out, "    %s\n", line)
		}
	}
}
