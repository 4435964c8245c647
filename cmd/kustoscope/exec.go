package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var execCmd = &cobra.Command{
	Use:   "exec [query]",
	Short: "Run a query directly, skipping generation and review",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	query := strings.Join(args, " ")

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := a.store.Execute(execCtx, query)
	if err != nil {
		return err
	}
	logger.Debug("query executed",
		zap.Int("rows", result.TotalRows()),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Println(renderResult(result, time.Since(start)))
	return nil
}
