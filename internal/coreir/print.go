package coreir

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"surge/internal/source"
)

// Printer renders a core Expr tree back into the textual surface grammar
// parse.go reads: the form golden tests compare translator output against.
// Identifier and string-literal text is run through golang.org/x/text's NFC
// normalizer before being written out, so two names that differ only in
// combining-character order print identically.
type Printer struct {
	strings *source.Interner
	out     strings.Builder
}

// NewPrinter creates a Printer backed by strings for resolving interned
// names.
func NewPrinter(strings *source.Interner) *Printer {
	return &Printer{strings: strings}
}

// Print renders root as core surface text. The Printer's internal buffer is
// reset first, so one Printer can be reused across many calls.
func (p *Printer) Print(root *Expr) string {
	p.out.Reset()
	p.printExpr(root)
	return p.out.String()
}

// PrintString is a convenience one-shot entry point.
func PrintString(strings *source.Interner, root *Expr) string {
	return NewPrinter(strings).Print(root)
}

func (p *Printer) name(id source.StringID) string {
	s, ok := p.strings.Lookup(id)
	if !ok {
		return ""
	}
	return norm.NFC.String(s)
}

func (p *Printer) write(s string) { p.out.WriteString(s) }

// isAtomic reports whether e prints without needing surrounding parens when
// it appears as a call/data argument.
func isAtomic(e *Expr) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case ExprConst, ExprIdent:
		return true
	case ExprData:
		d := e.Data.(DataExprData)
		return len(d.Args) == 0
	default:
		return false
	}
}

func (p *Printer) printAtom(e *Expr) {
	if isAtomic(e) {
		p.printExpr(e)
		return
	}
	p.write("(")
	p.printExpr(e)
	p.write(")")
}

func (p *Printer) printExpr(e *Expr) {
	if e == nil {
		p.write("<nil>")
		return
	}
	switch e.Kind {
	case ExprConst:
		d := e.Data.(ConstData)
		p.write(d.Literal.String())
	case ExprIdent:
		d := e.Data.(IdentData)
		p.write(p.name(d.Ident.Name))
	case ExprCall:
		d := e.Data.(CallData)
		p.printAtom(d.Callee)
		for i := range d.Args {
			p.write(" ")
			p.printAtom(&d.Args[i])
		}
	case ExprData:
		p.printData(e.Data.(DataExprData))
	case ExprLet:
		p.printLet(e.Data.(LetExprData))
	case ExprMatch:
		p.printMatch(e.Data.(MatchData))
	default:
		p.write(fmt.Sprintf("<invalid expr kind %v>", e.Kind))
	}
}

func (p *Printer) printData(d DataExprData) {
	if d.Tag.Name == SentinelTag.Name {
		p.write("(")
		for i := range d.Args {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(&d.Args[i])
		}
		p.write(")")
		return
	}
	p.write(p.name(d.Tag.Name))
	for i := range d.Args {
		p.write(" ")
		p.printAtom(&d.Args[i])
	}
}

func (p *Printer) printLet(d LetExprData) {
	p.write("let ")
	switch d.Binding.Expr.Kind {
	case NamedRecursive:
		p.write("rec ")
		for i, c := range d.Binding.Expr.Recursive {
			if i > 0 {
				p.write(" and ")
			}
			p.write(p.name(c.Name.Name))
			for _, a := range c.Args {
				p.write(" ")
				p.write(p.name(a.Name))
			}
			p.write(" = ")
			p.printExpr(c.Expr)
		}
	default:
		p.write(p.name(d.Binding.Name.Name))
		p.write(" = ")
		p.printExpr(d.Binding.Expr.Expr)
	}
	p.write(" in ")
	p.printExpr(d.Body)
}

func (p *Printer) printMatch(d MatchData) {
	p.write("match ")
	p.printExpr(d.Scrutinee)
	p.write(" with")
	for _, alt := range d.Alternatives {
		p.write(" | ")
		p.printPattern(alt.Pattern)
		p.write(" -> ")
		p.printExpr(alt.Expr)
	}
	p.write(" end")
}

func (p *Printer) printPattern(pat Pattern) {
	switch pat.Kind {
	case PatternIdent:
		p.write(p.name(pat.Ident.Name))
	case PatternLiteral:
		p.write(pat.Literal.String())
	case PatternConstructor:
		p.write(p.name(pat.Tag.Name))
		for _, f := range pat.Fields {
			p.write(" ")
			p.write(p.name(f.Name))
		}
	case PatternRecord:
		p.write("{ ")
		for i, f := range pat.RecordFields {
			if i > 0 {
				p.write(", ")
			}
			p.write(p.name(f.Field.Name))
			if f.Rename != source.NoStringID && f.Rename != f.Field.Name {
				p.write(" = ")
				p.write(p.name(f.Rename))
			}
		}
		p.write(" }")
	default:
		p.write(fmt.Sprintf("<invalid pattern kind %v>", pat.Kind))
	}
}
