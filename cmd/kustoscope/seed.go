package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kustoscope/internal/config"
	"kustoscope/internal/executor"
	"kustoscope/internal/schema"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo telemetry database and schema file",
	Long: `Creates the workspace .kustoscope directory with a synthetic
telemetry database (requests, errors, resource_usage) and the matching
schema.yaml, so ask/exec/analyze work out of the box.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	store, err := executor.OpenLocal(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(ctx); err != nil {
		return err
	}
	logger.Info("demo telemetry seeded", zap.String("database", cfg.DatabasePath))
	fmt.Printf("seeded demo telemetry: %s\n", cfg.DatabasePath)

	if _, err := os.Stat(cfg.SchemaPath); os.IsNotExist(err) {
		if err := schema.Default().Save(cfg.SchemaPath); err != nil {
			return err
		}
		fmt.Printf("wrote schema catalog: %s\n", cfg.SchemaPath)
	}
	return nil
}
