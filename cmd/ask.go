package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

const defaultAskOutput = "interactive_report.md"

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Interactively build a search report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cfg, "ask", pipelineOverrides{})
		if err != nil {
			return err
		}
		defaults := askDefaults{
			Sources: strings.Join(requestedSources("", cfg), ","),
			Output:  defaultAskOutput,
		}
		return runAsk(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), env.Pipeline, defaults)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// reportGenerator renders a Markdown report for a query.
type reportGenerator interface {
	GenerateReport(ctx context.Context, query string, names []string) (string, error)
}

type askDefaults struct {
	Sources string
	Output  string
}

// runAsk prompts for a query, a source list and an output path, then writes
// the rendered report. An empty query exits without generating anything.
func runAsk(ctx context.Context, in io.Reader, out io.Writer, gen reportGenerator, d askDefaults) error {
	r := bufio.NewReader(in)

	fmt.Fprintln(out, "Interactive search report")
	fmt.Fprintln(out, "Enter a question or keywords; the results will be collected into a Markdown report.")

	query, err := prompt(r, out, "Question or keywords", "")
	if err != nil {
		return err
	}
	if query == "" {
		fmt.Fprintln(out, "No keywords given, exiting.")
		return nil
	}
	sources, err := prompt(r, out, "Sources (comma-separated)", d.Sources)
	if err != nil {
		return err
	}
	output, err := prompt(r, out, "Output file", d.Output)
	if err != nil {
		return err
	}

	content, err := gen.GenerateReport(ctx, query, requestedSources(sources, cfg))
	if err != nil {
		return eris.Wrap(err, "ask: generate report")
	}
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return eris.Wrapf(err, "ask: write %s", output)
	}
	fmt.Fprintf(out, "Generated: %s\n", output)
	return nil
}

// prompt prints label with its default and returns the trimmed answer, or
// the default when the answer is blank. End of input counts as a blank answer.
func prompt(r *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s (default: %s): ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", eris.Wrapf(err, "ask: read %s", strings.ToLower(label))
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}
