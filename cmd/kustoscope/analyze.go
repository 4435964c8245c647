package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kustoscope/internal/types"
)

var analyzeMode string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Run a query and analyze the results",
	Long: `Runs a query and analyzes the result set. Statistical analysis is
deterministic and needs no API key; patterns, insights, and full also
send a bounded sample of the results to the configured LLM.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeMode, "mode", "m", "statistical",
		"Analysis mode: statistical, patterns, insights, full")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mode, ok := analysisModeFor(analyzeMode)
	if !ok {
		return fmt.Errorf("unknown analysis mode %q", analyzeMode)
	}

	a, err := newApp(ctx, mode != types.ModeStatistical)
	if err != nil {
		return err
	}
	defer a.close()

	query := strings.Join(args, " ")

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := a.store.Execute(opCtx, query)
	if err != nil {
		return err
	}
	fmt.Println(renderResult(result, time.Since(start)))

	res, err := a.engine.Analyze(opCtx, result, query, mode)
	if err != nil {
		return err
	}
	logger.Debug("analysis complete",
		zap.String("mode", string(mode)),
		zap.Int("rows", result.TotalRows()))
	fmt.Println(renderAnalysis(res))
	return nil
}
