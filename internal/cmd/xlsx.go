package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/paupaudragon/LiteSheet/internal/style"
	"github.com/paupaudragon/LiteSheet/packages/xlsx"
)

var (
	exportSheetName string
	importSheetName string
)

var exportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Write the spreadsheet to an Excel workbook",
	Long: `Write every cell with an A1-style name to a new workbook. Numbers and
text become values, formulas become workbook formulas.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <in.xlsx>",
	Short: "Read cells from an Excel workbook",
	Long: `Read the values and formulas of one workbook sheet into the spreadsheet
and save it. Formulas using functions, ranges, other sheets or operators
other than + - * / are skipped and listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	exportCmd.Flags().StringVar(&exportSheetName, "sheet", xlsx.DefaultSheetName, "Workbook sheet name")
	importCmd.Flags().StringVar(&importSheetName, "sheet", "", "Workbook sheet name (default: the first sheet)")
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}

	report, err := xlsx.Export(s, args[0], exportSheetName)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	printReport(cmd.OutOrStdout(), "exported", args[0], report)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}

	report, err := xlsx.Import(args[0], importSheetName, s)
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	if err := saveSheet(cmd, s); err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), "imported", args[0], report)
	return nil
}

func printReport(w io.Writer, verb, path string, report xlsx.Report) {
	color := style.IsTerminal(w)
	fmt.Fprintf(w, "%s %d cells (%s)\n", style.Render(color, style.Success, verb), len(report.Copied), path)
	for _, skipped := range report.Skipped {
		style.PrintWarning(w, "skipped %s: %s", skipped.Cell, skipped.Reason)
	}
	logger.Info().
		Str("path", path).
		Int("copied", len(report.Copied)).
		Int("skipped", len(report.Skipped)).
		Msg(verb)
}
