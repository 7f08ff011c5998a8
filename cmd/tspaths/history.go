package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/db"
)

const (
	argRun     = "run"
	argStatus  = "status"
	argRequest = "request"
	argLimit   = "limit"
	argRuns    = "runs"
	argPrune   = "prune"
)

const timeFormat = "2006-01-02 15:04:05"

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show resolutions recorded with --record.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			flags := cmd.Flags()
			asJSON, _ := flags.GetBool(argJSON)
			limit, _ := flags.GetInt(argLimit)

			if prune, _ := flags.GetDuration(argPrune); prune > 0 {
				removed, err := store.Prune(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "removed %d runs\n", removed)
				return nil
			}

			if listRuns, _ := flags.GetBool(argRuns); listRuns {
				runs, err := store.Runs(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return a.printJSON(runs)
				}
				t := a.table()
				t.AddHeader("RUN", "COMMAND", "STARTED", "FILES", "ALIASED", "UNRESOLVED", "TRANSACTION")
				for _, r := range runs {
					t.AddLine(r.ID, r.Command, r.StartedAt.Local().Format(timeFormat), r.FilesScanned, r.Aliased, r.Unresolved, r.TransactionID)
				}
				t.Print()
				return nil
			}

			filter := db.HistoryFilter{Limit: limit}
			filter.RunID, _ = flags.GetString(argRun)
			filter.Status, _ = flags.GetString(argStatus)
			filter.Request, _ = flags.GetString(argRequest)

			history, err := store.History(filter)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(history)
			}
			if len(history) == 0 {
				fmt.Fprintln(a.out, "no recorded resolutions")
				return nil
			}

			t := a.table()
			t.AddHeader("TIME", "RUN", "ISSUER", "REQUEST", "ALIAS", "STATUS", "RESULT")
			for _, r := range history {
				result := a.display(r.Path)
				if r.Error != "" {
					result = r.Error
				}
				t.AddLine(r.CreatedAt.Local().Format(timeFormat), r.RunID, a.display(r.Issuer), r.Request, r.Alias, r.Status, result)
			}
			t.Print()
			return nil
		},
	}

	cmd.Flags().String(argRun, "", "Only show resolutions of this run.")
	cmd.Flags().String(argStatus, "", "Only show resolved, unresolved or external resolutions.")
	cmd.Flags().String(argRequest, "", "Only show this specifier.")
	cmd.Flags().Int(argLimit, 50, "Maximum number of rows, 0 for all.")
	cmd.Flags().Bool(argRuns, false, "List runs instead of resolutions.")
	cmd.Flags().Duration(argPrune, 0, "Delete runs older than this (e.g. 720h) and exit.")
	cmd.Flags().Bool(argJSON, false, "Print JSON.")
	return cmd
}
