package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <name> [content...]",
	Short: "Set the content of a cell",
	Long: `Set the content of a cell and print every cell that was recomputed.

Content starting with "=" is a formula, a number literal is a number, and
anything else is text. Leaving the content out empties the cell.

Examples:
  litesheet set A1 5
  litesheet set B1 "=A1 * (A1 + 1)"
  litesheet set C1 quarterly total
  litesheet set D1 -5
  litesheet set C1              # empty C1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
	// everything after the name is content, including "-5"
	setCmd.Flags().SetInterspersed(false)
}

func runSet(cmd *cobra.Command, args []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}

	name, content := args[0], strings.Join(args[1:], " ")
	order, err := s.SetContentsOfCell(name, content)
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}

	if err := saveSheet(cmd, s); err != nil {
		return err
	}

	if len(order) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(order, " "))
	}
	return nil
}
