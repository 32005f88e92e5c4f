package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"surge/internal/coreir"
	sourcepkg "surge/internal/source"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

var goldenCheckCmd = &cobra.Command{
	Use:   "golden-check",
	Short: "Check every *.core fixture under the golden directory round-trips through print/parse",
	Args:  cobra.NoArgs,
	RunE:  runGoldenCheck,
}

func runGoldenCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	applyColorMode(mode)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(cfg.Golden.Dir, "*.core"))
	if err != nil {
		return fmt.Errorf("surgecorefmt golden-check: %w", err)
	}
	sort.Strings(files)

	w := cmd.OutOrStdout()
	failed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("surgecorefmt golden-check: %w", err)
		}
		if err := checkRoundTrip(string(data)); err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", failColor.Sprint("FAIL"), path, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s %s\n", okColor.Sprint("ok"), path)
	}

	if failed > 0 {
		return fmt.Errorf("surgecorefmt golden-check: %d of %d fixtures failed", failed, len(files))
	}
	return nil
}

// checkRoundTrip verifies that printing a parsed tree and parsing that
// output again yields the same text: parse.go and print.go agreeing on one
// canonical textual form for a given tree.
func checkRoundTrip(text string) error {
	strs := sourcepkg.NewInterner()
	alloc := coreir.NewAllocator()
	root, err := coreir.ParseCore(strs, alloc, text)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	printed := coreir.PrintString(strs, root)

	reparsed, err := coreir.ParseCore(strs, alloc, printed)
	if err != nil {
		return fmt.Errorf("reparse of printed output: %w", err)
	}
	reprinted := coreir.PrintString(strs, reparsed)

	if printed != reprinted {
		return fmt.Errorf("print output is not a fixed point:\nfirst:  %s\nsecond: %s", printed, reprinted)
	}
	return nil
}
