package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

var getContents bool

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print the value of a cell",
	Long: `Print the value of a cell, or its content with --contents.

An empty cell prints an empty line. A formula that cannot be computed
prints its error code (#DIV/0!, #NAME? or #VALUE!) and exits with status 2.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getContents, "contents", false, "Print the content instead of the value")
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}

	if getContents {
		form, err := s.StringForm(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), form)
		return nil
	}

	value, err := s.GetCellValue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), spreadsheet.FormatValue(value))

	if evalErr, ok := value.(*spreadsheet.SpreadsheetError); ok {
		logger.Debug().Str("cell", args[0]).Str("reason", evalErr.Message).Msg("cell holds an error value")
		return NewSilentExit(2)
	}
	return nil
}
