package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var exportPlanCmd = &cobra.Command{
	Use:   "export-plan [plan-id]",
	Short: "Write a plan and its items to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportPlan,
}

var exportOut string

func init() {
	exportPlanCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default plan-<id>.xlsx)")
	rootCmd.AddCommand(exportPlanCmd)
}

func runExportPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	planID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("plan id must be a UUID: %w", err)
	}
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.Export.ExportPlanXLSX(ctx, tenant, planID)
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = fmt.Sprintf("plan-%s.xlsx", planID)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	cmd.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}
