package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/core"
)

func newUndoCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo [transaction]",
		Short: "Restore the files a rewrite changed.",
		Long: `Restores the files written by 'tspaths rewrite --write' from their backups.
Without an argument, lists rewrites that were interrupted and never finished.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm := core.NewTransactionManager(a.txDir(), core.NewAtomicWriter(core.DefaultAtomicConfig()))

			if len(args) == 0 {
				pending, err := tm.Pending()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(a.out, "no interrupted rewrites")
					return nil
				}
				t := a.table()
				t.AddHeader("TRANSACTION", "STARTED", "FILES", "DESCRIPTION")
				for _, tx := range pending {
					t.AddLine(tx.ID, tx.Started.Format(timeFormat), len(tx.Operations), tx.Description)
				}
				t.Print()
				return nil
			}

			tx, err := tm.Undo(args[0])
			if err != nil {
				return err
			}
			for _, op := range tx.Operations {
				fmt.Fprintf(a.out, "restored %s\n", a.display(op.FilePath))
			}
			colorOK.Fprintf(a.out, "undid %s\n", tx.ID)
			return nil
		},
	}
	return cmd
}
