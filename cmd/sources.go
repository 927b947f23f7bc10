package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/search-report/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the recognized search sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cfg, "report", pipelineOverrides{})
		if err != nil {
			return err
		}
		return printSources(cmd.OutOrStdout(), env.Registry, cfg.Sources.Limit)
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func printSources(w io.Writer, reg *source.Registry, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLABEL")
	for _, name := range reg.Names() {
		s, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", s.Name(), s.Label(limit))
	}
	return tw.Flush()
}
