package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"surge/internal/coreir"
	sourcepkg "surge/internal/source"
)

var (
	dumpKindColor  = color.New(color.FgCyan, color.Bold)
	dumpIdentColor = color.New(color.FgGreen)
	dumpLitColor   = color.New(color.FgYellow)
	dumpTagColor   = color.New(color.FgMagenta, color.Bold)
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Parse a core-surface file and print a colorized tree dump",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	applyColorMode(mode)

	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("surgecorefmt dump: %w", err)
	}

	strs := sourcepkg.NewInterner()
	alloc := coreir.NewAllocator()
	root, err := coreir.ParseCore(strs, alloc, string(data))
	if err != nil {
		return fmt.Errorf("surgecorefmt dump: %w", err)
	}

	dumpExpr(cmd.OutOrStdout(), strs, root, 0)
	return nil
}

func applyColorMode(mode string) {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default: // "auto": leave fatih/color's own terminal detection in place
	}
}

func indent(w io.Writer, depth int) {
	fmt.Fprint(w, strings.Repeat("  ", depth))
}

func name(strs *sourcepkg.Interner, id sourcepkg.StringID) string {
	s, _ := strs.Lookup(id)
	return s
}

func dumpExpr(w io.Writer, strs *sourcepkg.Interner, e *coreir.Expr, depth int) {
	indent(w, depth)
	if e == nil {
		fmt.Fprintln(w, dumpKindColor.Sprint("<nil>"))
		return
	}
	switch e.Kind {
	case coreir.ExprConst:
		d, _ := e.AsConst()
		fmt.Fprintf(w, "%s %s\n", dumpKindColor.Sprint("Const"), dumpLitColor.Sprint(d.Literal.String()))
	case coreir.ExprIdent:
		d, _ := e.AsIdent()
		fmt.Fprintf(w, "%s %s\n", dumpKindColor.Sprint("Ident"), dumpIdentColor.Sprint(name(strs, d.Ident.Name)))
	case coreir.ExprCall:
		d, _ := e.AsCall()
		fmt.Fprintln(w, dumpKindColor.Sprint("Call"))
		dumpExpr(w, strs, d.Callee, depth+1)
		for i := range d.Args {
			dumpExpr(w, strs, &d.Args[i], depth+1)
		}
	case coreir.ExprData:
		d, _ := e.AsData()
		tag := name(strs, d.Tag.Name)
		if tag == "" {
			tag = "<tuple>"
		}
		fmt.Fprintf(w, "%s %s\n", dumpKindColor.Sprint("Data"), dumpTagColor.Sprint(tag))
		for i := range d.Args {
			dumpExpr(w, strs, &d.Args[i], depth+1)
		}
	case coreir.ExprLet:
		d, _ := e.AsLet()
		fmt.Fprintf(w, "%s %s\n", dumpKindColor.Sprint("Let"), dumpIdentColor.Sprint(name(strs, d.Binding.Name.Name)))
		indent(w, depth+1)
		fmt.Fprintln(w, "binding:")
		switch d.Binding.Expr.Kind {
		case coreir.NamedRecursive:
			for _, c := range d.Binding.Expr.Recursive {
				indent(w, depth+2)
				fmt.Fprintf(w, "closure %s\n", dumpIdentColor.Sprint(name(strs, c.Name.Name)))
				dumpExpr(w, strs, c.Expr, depth+3)
			}
		default:
			dumpExpr(w, strs, d.Binding.Expr.Expr, depth+2)
		}
		indent(w, depth+1)
		fmt.Fprintln(w, "body:")
		dumpExpr(w, strs, d.Body, depth+2)
	case coreir.ExprMatch:
		d, _ := e.AsMatch()
		fmt.Fprintln(w, dumpKindColor.Sprint("Match"))
		indent(w, depth+1)
		fmt.Fprintln(w, "scrutinee:")
		dumpExpr(w, strs, d.Scrutinee, depth+2)
		for _, alt := range d.Alternatives {
			indent(w, depth+1)
			fmt.Fprintf(w, "| %s ->\n", dumpPattern(strs, alt.Pattern))
			dumpExpr(w, strs, alt.Expr, depth+2)
		}
	default:
		fmt.Fprintf(w, "%s\n", dumpKindColor.Sprintf("<invalid kind %v>", e.Kind))
	}
}

func dumpPattern(strs *sourcepkg.Interner, p coreir.Pattern) string {
	switch p.Kind {
	case coreir.PatternIdent:
		return dumpIdentColor.Sprint(name(strs, p.Ident.Name))
	case coreir.PatternLiteral:
		return dumpLitColor.Sprint(p.Literal.String())
	case coreir.PatternConstructor:
		parts := []string{dumpTagColor.Sprint(name(strs, p.Tag.Name))}
		for _, f := range p.Fields {
			parts = append(parts, name(strs, f.Name))
		}
		return strings.Join(parts, " ")
	case coreir.PatternRecord:
		parts := make([]string, 0, len(p.RecordFields))
		for _, f := range p.RecordFields {
			parts = append(parts, name(strs, f.Field.Name))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return "<invalid pattern>"
	}
}
