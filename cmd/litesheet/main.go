// litesheet is a terminal spreadsheet with formulas and automatic
// recalculation.
package main

import (
	"os"

	"github.com/paupaudragon/LiteSheet/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
