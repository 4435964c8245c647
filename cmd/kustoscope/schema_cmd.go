package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kustoscope/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema catalog given to the query generator",
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}
	fmt.Print(loadCatalog(cfg.SchemaPath).Prompt())
	return nil
}
