package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"artifact_dashboard/internal/analysis"
	"artifact_dashboard/internal/config"
	"artifact_dashboard/internal/db"
	"artifact_dashboard/internal/llm"
	"artifact_dashboard/internal/logging"
	"artifact_dashboard/internal/workspace"
)

var (
	configPath    string
	workspaceRoot string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:           "artdash",
	Short:         "Score submitted artifacts for quality, AI authorship and plagiarism",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <workspace>/configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspaceRoot, "workspace", "", "workspace directory (default ~/"+workspace.BaseDirName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(initCmd, serveCmd, analyzeCmd, reanalyzeCmd, dashboardCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	root   string
	cfg    config.Config
	logger *zap.Logger
	store  *db.Store
	orch   *analysis.Orchestrator
}

func prepareWorkspace() (string, error) {
	if workspaceRoot != "" {
		return workspace.EnsureAt(workspaceRoot)
	}
	return workspace.EnsureDefault()
}

func newApp(ctx context.Context) (*app, error) {
	root, err := prepareWorkspace()
	if err != nil {
		return nil, err
	}
	path := configPath
	if path == "" {
		path = workspace.ConfigPath(root)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if workspaceRoot != "" || cfg.Workspace == "" {
		cfg.Workspace = root
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	provider, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		logger.Warn("llm provider unavailable, using local scoring only", zap.Error(err))
		provider = nil
	}

	orch := analysis.New(store, provider, analysis.Policy{
		PlagiarismThreshold: cfg.Policy.PlagiarismThreshold,
		AIThreshold:         cfg.Policy.AIThreshold,
		SimilarityThreshold: cfg.Policy.SimilarityThreshold,
		TopK:                cfg.Policy.TopK,
		LLMTimeout:          cfg.LLM.Timeout,
	}, logger)
	orch.ReportRoot = cfg.Workspace

	logger.Debug("workspace ready",
		zap.String("root", cfg.Workspace),
		zap.String("database", cfg.Database.Driver),
		zap.String("llm", cfg.LLM.Provider),
	)
	return &app{root: cfg.Workspace, cfg: cfg, logger: logger, store: store, orch: orch}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}
