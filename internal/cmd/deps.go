package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps <name>",
	Short: "Show what a cell references and what references it",
	Long: `Show the direct dependees of a cell (the cells its formula reads) and
its direct dependents (the cells whose formulas read it).`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}

	dependees, err := s.DirectDependees(args[0])
	if err != nil {
		return err
	}
	dependents, err := s.DirectDependents(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "reads:   %s\n", joinOrDash(dependees))
	fmt.Fprintf(out, "read by: %s\n", joinOrDash(dependents))
	return nil
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, " ")
}
