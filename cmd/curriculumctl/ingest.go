package main

import (
	"github.com/spf13/cobra"
)

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir [dir]",
	Short: "Ingest every curriculum file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestDir,
}

var includeHidden bool

func init() {
	ingestDirCmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Also ingest hidden files and directories")
	rootCmd.AddCommand(ingestDirCmd)
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Seed(ctx); err != nil {
		return err
	}

	results, stats, err := a.Ingest.IngestDirectory(ctx, tenant, args[0], !includeHidden)
	for _, r := range results {
		if r.Err != "" {
			cmd.Printf("FAIL  %s: %s\n", r.Path, r.Err)
			continue
		}
		cmd.Printf("OK    %s (%s, %d segments)\n", r.Path, r.Outcome.Status, r.Outcome.SegmentCount)
	}
	cmd.Printf("scanned=%d matched=%d succeeded=%d failed=%d\n", stats.Scanned, stats.Matched, stats.Succeeded, stats.Failed)
	return err
}
