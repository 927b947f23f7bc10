package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/report"
	"github.com/sells-group/search-report/internal/source"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		env, err := initPipeline(cfg, "serve", pipelineOverrides{})
		if err != nil {
			return err
		}

		router := buildRouter(env.Pipeline, env.Registry, routerOptions{
			CORSOrigins: cfg.Server.CORSOrigins,
			Markdown: report.MarkdownOptions{
				Title:       cfg.Report.Title,
				FrontMatter: cfg.Report.FrontMatter,
				Diagnostics: cfg.Report.Diagnostics,
			},
			Limit: cfg.Sources.Limit,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// reportRunner builds a report for a query.
type reportRunner interface {
	Run(ctx context.Context, query string, names []string) (*model.Report, error)
}

type routerOptions struct {
	CORSOrigins []string
	Markdown    report.MarkdownOptions
	Limit       int
}

// buildRouter wires the API routes.
func buildRouter(runner reportRunner, reg *source.Registry, opts routerOptions) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sources", func(w http.ResponseWriter, r *http.Request) {
			type entry struct {
				Name  string `json:"name"`
				Label string `json:"label"`
			}
			var out []entry
			if reg != nil {
				for _, name := range reg.Names() {
					if s, err := reg.Lookup(name); err == nil {
						out = append(out, entry{Name: s.Name(), Label: s.Label(opts.Limit)})
					}
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{"sources": out})
		})

		r.Get("/report", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			query := q.Get("q")
			if query == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
				return
			}
			format, err := report.ParseFormat(q.Get("format"))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}

			rpt, err := runner.Run(r.Context(), query, requestedSources(q.Get("sources"), cfg))
			if err != nil {
				zap.L().Error("report request failed", zap.String("query", query), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report generation failed"})
				return
			}

			w.Header().Set("Content-Type", format.ContentType())
			w.Header().Set("X-Report-ID", rpt.ID)
			if format == report.FormatXLSX {
				w.Header().Set("Content-Disposition", `attachment; filename="search_report.xlsx"`)
			}
			if err := report.Write(w, rpt, format, opts.Markdown); err != nil {
				zap.L().Error("write report response", zap.Error(err))
			}
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
