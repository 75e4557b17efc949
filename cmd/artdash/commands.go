package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"artifact_dashboard/internal/analysis"
	"artifact_dashboard/internal/ingest"
	"artifact_dashboard/internal/pipeline"
	"artifact_dashboard/internal/server"
	"artifact_dashboard/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workspace layout and default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := prepareWorkspace()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Workspace ready at: %s\n", filepath.Clean(root))
		fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", workspace.ConfigPath(root))
		return nil
	},
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr: addr,
			Handler: server.New(a.store, a.orch, a.logger, server.Options{
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				UploadRoot:     a.root,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			a.logger.Info("listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Store and analyse local files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var failed int
		for _, path := range args {
			parsed, err := ingest.ParseFile(path)
			if err != nil {
				failed++
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				continue
			}
			rec, err := a.orch.Submit(cmd.Context(), analysis.NewSubmission{
				Title:      parsed.Title,
				Kind:       parsed.Kind,
				SourceName: parsed.SourceName,
				Content:    parsed.Text,
			})
			if err != nil {
				failed++
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				continue
			}
			if _, err := workspace.StoreUpload(a.root, rec.SubmissionID, parsed.SourceName, parsed.Raw); err != nil {
				a.logger.Warn("store upload", zap.String("path", path), zap.Error(err))
			}
			printRecord(cmd, parsed.Title, rec)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run analysis for every stored submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.store.SubmissionIDs(cmd.Context())
		if err != nil {
			return err
		}
		errs := pipeline.AnalyzeAll(cmd.Context(), ids, a.cfg.Workers, func(ctx context.Context, id string) error {
			_, err := a.orch.Analyze(ctx, id)
			return err
		})
		for _, err := range errs {
			a.logger.Error("reanalysis failed", zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Re-analysed %d submissions, %d failed\n", len(ids), len(errs))
		return errors.Join(errs...)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print aggregate scores and recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		recent, err := a.store.RecentAnalyses(cmd.Context(), 10)
		if err != nil {
			return err
		}
		bold := color.New(color.Bold).SprintFunc()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d submitted, %d analysed\n", bold("Submissions:"), st.Submissions, st.Analyzed)
		fmt.Fprintf(out, "%s %d plagiarism, %d AI\n", bold("Flagged:"), st.PlagiarismFlagged, st.AIFlagged)
		fmt.Fprintf(out, "%s quality %.1f, AI %.2f, plagiarism %.2f\n", bold("Averages:"), st.AvgQuality, st.AvgAIScore, st.AvgPlagiarism)
		for _, r := range recent {
			fmt.Fprintf(out, "  %-30s q=%3d ai=%.2f plag=%.2f %s\n", r.Title, r.QualityScore, r.AIScore, r.PlagiarismScore, flagText(r.AIFlag, r.PlagiarismFlag))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func printRecord(cmd *cobra.Command, title string, rec analysis.Record) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %s (%s)\n", green("✓"), title, rec.Provider)
	fmt.Fprintf(out, "  quality %d/100  ai %.2f  plagiarism %.2f %s\n", rec.QualityScore, rec.AIScore, rec.PlagiarismScore, flagText(rec.AIFlag, rec.PlagiarismFlag))
	for _, m := range rec.Matches {
		fmt.Fprintf(out, "  ~ %.2f %s\n", m.SimilarityScore, m.Label)
	}
	for _, f := range rec.Flags {
		fmt.Fprintf(out, "  - %s\n", f)
	}
}

func flagText(ai, plagiarism bool) string {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	switch {
	case ai && plagiarism:
		return red("[AI, PLAGIARISM]")
	case ai:
		return red("[AI]")
	case plagiarism:
		return red("[PLAGIARISM]")
	}
	return ""
}
