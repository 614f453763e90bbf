package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the litesheet release, the spreadsheet version from the config, and
the version recorded in --file when it exists.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "litesheet %s\n", Version)
	fmt.Fprintf(out, "spreadsheet version: %s\n", cfg.Version)

	if _, err := os.Stat(sheetFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	ctx, cancel := lockContext(cmd)
	defer cancel()
	saved, err := spreadsheet.SavedVersion(ctx, sheetFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s version: %s\n", sheetFile, saved)
	return nil
}
