package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/textextract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Print the plain text of a PDF or text file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var pdftotextBin string

func init() {
	extractCmd.Flags().StringVar(&pdftotextBin, "pdftotext", "pdftotext", "pdftotext binary")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := extractFile(cmd, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func extractFile(cmd *cobra.Command, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	ex := textextract.NewExtractor(textextract.Config{Pdftotext: pdftotextBin}, nil)
	res, err := ex.Extract(cmd.Context(), data, filepath.Base(path), "")
	if err != nil {
		return "", err
	}
	for _, w := range res.Warnings {
		cmd.PrintErrln("warning:", w)
	}
	return res.Text, nil
}
