package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/report"
)

var (
	reportQuery       string
	reportSources     string
	reportOutput      string
	reportFormat      string
	reportLimit       int
	reportCap         int
	reportNoEnrich    bool
	reportSequential  bool
	reportFrontMatter bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a search report for a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := report.ParseFormat(firstNonEmpty(reportFormat, cfg.Report.Format))
		if err != nil {
			return err
		}

		env, err := initPipeline(cfg, "report", pipelineOverrides{
			Limit:      reportLimit,
			Cap:        reportCap,
			NoEnrich:   reportNoEnrich,
			Sequential: reportSequential,
		})
		if err != nil {
			return err
		}

		rpt, err := env.Pipeline.Run(ctx, reportQuery, requestedSources(reportSources, cfg))
		if err != nil {
			return eris.Wrap(err, "report: run pipeline")
		}
		logDiagnostics(rpt)

		opts := report.MarkdownOptions{
			Title:       cfg.Report.Title,
			FrontMatter: reportFrontMatter || cfg.Report.FrontMatter,
			Diagnostics: cfg.Report.Diagnostics,
		}
		output := outputPath(reportOutput, cfg.Report.Output, format)
		if output == "-" {
			return report.Write(cmd.OutOrStdout(), rpt, format, opts)
		}
		if err := writeReportFile(output, rpt, format, opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", output)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportQuery, "query", "", "search keywords (required)")
	reportCmd.Flags().StringVar(&reportSources, "sources", "", "comma-separated sources: wikipedia, mlb, google, youtube (default from config)")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "output file path, - for stdout (default from config)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "output format: markdown, json or xlsx (default from config)")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0, "results per source (default from config)")
	reportCmd.Flags().IntVar(&reportCap, "cap", 0, "combined list size (default from config)")
	reportCmd.Flags().BoolVar(&reportNoEnrich, "no-enrich", false, "skip fetching result pages for excerpts")
	reportCmd.Flags().BoolVar(&reportSequential, "sequential", false, "query sources one at a time")
	reportCmd.Flags().BoolVar(&reportFrontMatter, "front-matter", false, "prepend YAML front matter to Markdown output")
	_ = reportCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(reportCmd)
}

// writeReportFile writes rpt to path, creating parent directories.
func writeReportFile(path string, rpt *model.Report, f report.Format, opts report.MarkdownOptions) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "report: create dir %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := report.Write(file, rpt, f, opts); err != nil {
		_ = file.Close()
		return err
	}
	return eris.Wrapf(file.Close(), "report: close %s", path)
}

// outputPath picks the flag value, else the configured path. A configured
// Markdown path is given the extension of a non-Markdown format.
func outputPath(flag, configured string, f report.Format) string {
	if flag != "" {
		return flag
	}
	if f != report.FormatMarkdown && strings.EqualFold(filepath.Ext(configured), ".md") {
		return strings.TrimSuffix(configured, filepath.Ext(configured)) + f.Extension()
	}
	return configured
}

func logDiagnostics(rpt *model.Report) {
	for _, d := range rpt.Diagnostics {
		zap.L().Warn("source diagnostic",
			zap.String("source", d.Source),
			zap.String("message", d.Message),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
