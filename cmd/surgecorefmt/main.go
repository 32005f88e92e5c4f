// Command surgecorefmt is a small batch/debug driver over internal/coreir's
// textual surface: it dumps parsed core trees and checks a directory of
// golden round-trip fixtures. It is not part of the compiler pipeline —
// surge itself never shells out to it.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "surgecorefmt",
	Short: "Debug/golden-file driver for the core IR textual surface",
}

func main() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(goldenCheckCmd)

	rootCmd.PersistentFlags().String("config", "", "path to a surgecorefmt.toml config file")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
