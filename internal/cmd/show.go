package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/paupaudragon/LiteSheet/internal/style"
	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List every non-empty cell",
	Long: `List every non-empty cell with its content and value, sorted by name.

Colors are used only when stdout is a terminal.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, _ []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}
	printSheet(cmd.OutOrStdout(), s)
	return nil
}

// printSheet writes the cell table, or a note when the sheet is empty
func printSheet(w io.Writer, s *spreadsheet.Spreadsheet) {
	color := style.IsTerminal(w)
	names := s.NonEmptyCells()
	if len(names) == 0 {
		fmt.Fprintln(w, style.Render(color, style.Dim, "(empty spreadsheet)"))
		return
	}

	table := style.NewTable(
		style.Column{Name: "CELL", Style: style.Info},
		style.Column{Name: "CONTENT", MaxWidth: 40},
		style.Column{Name: "VALUE", MaxWidth: 30},
	).SetColor(color)

	for _, name := range names {
		form, _ := s.StringForm(name)
		value, _ := s.GetCellValue(name)

		var styles []*lipgloss.Style
		if _, isErr := value.(*spreadsheet.SpreadsheetError); isErr {
			styles = []*lipgloss.Style{nil, nil, &style.Error}
		}
		table.AddStyledRow(styles, name, form, spreadsheet.FormatValue(value))
	}
	fmt.Fprint(w, table.Render())
}
