package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const argWrite = "write"

func newRewriteCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite [dir]",
		Short: "Replace aliased imports with relative ones.",
		Long: `Replaces every aliased import that resolves to a file of the project with a
relative specifier. Without --write the changes are printed as a diff.
Written files are backed up and can be restored with 'tspaths undo'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.scan(cmd, args, "rewrite")
			if err != nil {
				return err
			}
			write, _ := cmd.Flags().GetBool(argWrite)
			if write {
				if err := res.processor.Apply(cmd.Context(), res.summary); err != nil {
					return err
				}
				res.run.TransactionID = res.summary.TransactionID
			}
			if record, _ := cmd.Flags().GetBool(argRecord); record {
				a.record(res.run, res.collected.resolutions())
			}

			if asJSON, _ := cmd.Flags().GetBool(argJSON); asJSON {
				return a.printJSON(res.summary)
			}

			a.printProblems(res.summary)
			switch {
			case res.summary.FilesModified == 0:
				fmt.Fprintln(a.out, "nothing to rewrite")
			case write:
				colorOK.Fprintf(a.out, "rewrote %d files\n", res.summary.FilesModified)
				fmt.Fprintf(a.out, "undo with: tspaths undo %s\n", res.summary.TransactionID)
			default:
				for _, f := range res.summary.Files {
					if f.Modified {
						a.printDiff(f.Diff)
					}
				}
				fmt.Fprintf(a.out, "%d files would change, run with --%s to apply\n", res.summary.FilesModified, argWrite)
			}
			return nil
		},
	}
	withScopeFlags(cmd)
	cmd.Flags().Bool(argWrite, false, "Write the changes instead of printing them.")
	return cmd
}

func (a *app) printDiff(diff string) {
	sc := bufio.NewScanner(strings.NewReader(diff))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			colorHeader.Fprintln(a.out, line)
		case strings.HasPrefix(line, "+"):
			colorOK.Fprintln(a.out, line)
		case strings.HasPrefix(line, "-"):
			colorError.Fprintln(a.out, line)
		default:
			fmt.Fprintln(a.out, line)
		}
	}
}
