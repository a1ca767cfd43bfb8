package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
	processor "github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline/planparse"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Ingest a file into a new plan and extract its items",
	Long: `Ingests the file as a curriculum document, creates a plan for it and runs
chunked item extraction. Prints the document outcome and the item count.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var (
	parsePlanName     string
	parseSubject      string
	parseAcademicYear string
	parseJurisdiction string
)

func init() {
	parseCmd.Flags().StringVar(&parsePlanName, "plan-name", "", "Plan name (defaults to the file name)")
	parseCmd.Flags().StringVar(&parseSubject, "subject", "", "Subject hint for items without an area")
	parseCmd.Flags().StringVar(&parseAcademicYear, "academic-year", "", "Academic year of the plan")
	parseCmd.Flags().StringVar(&parseJurisdiction, "jurisdiction", "", "Jurisdiction of the plan")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Seed(ctx); err != nil {
		return err
	}

	name := parsePlanName
	if name == "" {
		name = filepath.Base(path)
	}
	res, err := a.Processor.ProcessPlanUpload(ctx, processor.PlanUpload{
		TenantID: tenant,
		File: ingest.FileRequest{
			Metadata: ingest.Metadata{TenantID: tenant, Title: name, Jurisdiction: parseJurisdiction},
			Data:     data,
			Filename: filepath.Base(path),
		},
		SubjectHint: parseSubject,
		Plan: planparse.NewPlan{
			TenantID:     tenant,
			Name:         name,
			AcademicYear: parseAcademicYear,
			Jurisdiction: parseJurisdiction,
		},
	})
	if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
		return perr
	}
	return err
}
