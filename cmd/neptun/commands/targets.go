package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/neptun-scraper/internal/site"
)

func init() {
	rootCmd.AddCommand(targetsCmd)
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Lists the scrape targets.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tRENDERER\tQUERY\tDESCRIPTION")
		for _, name := range site.Names() {
			t, _ := site.Lookup(name)
			query := "-"
			if t.RequiresQuery {
				query = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Renderer, query, t.Description)
		}
		return w.Flush()
	},
}
