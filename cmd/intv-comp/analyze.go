package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stphegia-org/intv-comp/internal/analyzer"
	"github.com/stphegia-org/intv-comp/internal/config"
)

func analyzeCMD() *cobra.Command {
	var (
		messagesFile    string
		sessionsFile    string
		output          string
		mode            string
		policyID        string
		threshold       float64
		maxTokens       int
		noFilter        bool
		limitSessions   int
		sample          bool
		model           string
		externalSources string
		referencesDir   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Generate analysis reports from interview CSV exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel)

			// Flags override the environment configuration.
			flags := cmd.Flags()
			if flags.Changed("messages-file") {
				cfg.MessagesCSVPath = messagesFile
			}
			if flags.Changed("sessions-file") {
				cfg.SessionsCSVPath = sessionsFile
			}
			if flags.Changed("output") {
				cfg.ReportOutputDir = output
			}
			if flags.Changed("mode") {
				cfg.Mode = mode
			}
			if flags.Changed("policy") {
				cfg.PolicyID = policyID
			}
			if flags.Changed("threshold") {
				cfg.RelevanceThreshold = threshold
			}
			if flags.Changed("max-tokens") {
				cfg.MaxChunkTokens = maxTokens
			}
			if noFilter {
				cfg.FilterEnabled = false
			}
			if flags.Changed("limit-sessions") {
				cfg.SessionLimit = limitSessions
			}
			if sample {
				cfg.SessionSample = true
			}
			if flags.Changed("model") {
				cfg.OpenAIModel = model
			}
			if flags.Changed("external-sources") {
				cfg.ExternalSourcesPath = externalSources
			}
			if flags.Changed("references-dir") {
				cfg.ReferencesDir = referencesDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runAnalyze(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&messagesFile, "messages-file", "", "messages CSV path")
	cmd.Flags().StringVar(&sessionsFile, "sessions-file", "", "sessions CSV path")
	cmd.Flags().StringVar(&output, "output", "reports", "report output directory")
	cmd.Flags().StringVar(&mode, "mode", "chunk", "analysis mode (chunk or policy)")
	cmd.Flags().StringVar(&policyID, "policy", "", "restrict policy mode to one policy id")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.3, "relevance threshold, messages at or below are dropped")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 8000, "token budget per chunk")
	cmd.Flags().BoolVar(&noFilter, "no-filter", false, "disable the relevance filter")
	cmd.Flags().IntVar(&limitSessions, "limit-sessions", 0, "cap the number of analyzed sessions (0 = all)")
	cmd.Flags().BoolVar(&sample, "sample", false, "sample sessions randomly instead of taking the first")
	cmd.Flags().StringVar(&model, "model", "", "OpenAI model name")
	cmd.Flags().StringVar(&externalSources, "external-sources", "", "external sources Markdown path")
	cmd.Flags().StringVar(&referencesDir, "references-dir", "", "reference materials directory")
	return cmd
}

func runAnalyze(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	a := analyzer.New(cfg, p.llm, p.filter, p.repo, p.store, p.metrics, logger)
	summary, err := a.Run(ctx)
	if err != nil {
		return err
	}

	for _, path := range summary.Reports {
		fmt.Printf("レポートを出力しました: %s\n", path)
	}
	fmt.Printf("フィルタ: %s\n", summary.FilterStats.Summary())
	fmt.Printf("引用リンク: 解決%d件 / フォールバック%d件\n", summary.ResolvedCitations, summary.FallbackCitations)
	return nil
}
