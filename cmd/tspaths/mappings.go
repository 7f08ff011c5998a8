package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/mcp"
)

func newMappingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "List the path mappings of the project in the order they are tried.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject(cmd.Context())
			if err != nil {
				return err
			}

			views := p.mappings()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return a.printJSON(map[string]any{
					"config":        p.config.Path,
					"extends":       p.config.Files[1:],
					"baseDirectory": p.table.BaseDirectory(),
					"baseUrl":       p.table.HasBaseURL(),
					"mappings":      views,
				})
			}

			colorHeader.Fprintf(a.out, "%s\n", p.config.Path)
			for _, f := range p.config.Files[1:] {
				fmt.Fprintf(a.out, "  extends %s\n", f)
			}
			fmt.Fprintf(a.out, "  base directory %s\n", p.table.BaseDirectory())
			if p.table.HasBaseURL() {
				fmt.Fprintf(a.out, "  bare modules are also looked up in the base directory\n")
			}
			fmt.Fprintln(a.out)

			if len(views) == 0 {
				colorWarn.Fprintln(a.out, "no paths configured")
				return nil
			}

			t := a.table()
			t.AddHeader("ALIAS", "TARGET", "KIND", "STATUS")
			for _, v := range views {
				status := "active"
				if !v.Active {
					status = "skipped (typings)"
				}
				t.AddLine(v.Alias, v.Target, v.Kind, status)
			}
			t.Print()
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON.")
	return cmd
}

func (p *project) mappings() []mcp.Mapping {
	var views []mcp.Mapping
	for _, m := range p.table.Mappings() {
		views = append(views, mcp.Mapping{
			Alias:  m.Alias,
			Target: m.Target,
			Kind:   m.Pattern.Kind.String(),
			Active: !m.Typings(),
		})
	}
	return views
}
