package coreir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"surge/internal/source"
)

// Parser reads the core textual surface printed by print.go back into an
// Expr tree: `let`/`let rec ... and ...`/`match ... with | pat -> expr end`
// over applications, tuples, and the four one-level pattern shapes. It
// exists purely for golden-file round-trip testing; nothing in the
// production translator consumes it.
type Parser struct {
	strings *source.Interner
	alloc   *Allocator
	toks    []coreToken
	pos     int
}

// NewParser creates a Parser that interns identifiers into strings and
// allocates every produced node from alloc.
func NewParser(strings *source.Interner, alloc *Allocator) *Parser {
	return &Parser{strings: strings, alloc: alloc}
}

// Parse reads one complete expression from text.
func (p *Parser) Parse(text string) (*Expr, error) {
	toks, err := lexCore(text)
	if err != nil {
		return nil, err
	}
	p.toks = toks
	p.pos = 0
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("coreir: parse: unexpected trailing token %q", p.cur().text)
	}
	return e, nil
}

// ParseCore is a convenience one-shot entry point.
func ParseCore(strings *source.Interner, alloc *Allocator, text string) (*Expr, error) {
	return NewParser(strings, alloc).Parse(text)
}

func (p *Parser) cur() coreToken {
	if p.pos >= len(p.toks) {
		return coreToken{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() coreToken {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k tokKind, what string) (coreToken, error) {
	t := p.cur()
	if t.kind != k {
		return coreToken{}, fmt.Errorf("coreir: parse: expected %s, got %q", what, t.text)
	}
	return p.advance(), nil
}

func (p *Parser) intern(s string) source.StringID { return p.strings.Intern(s) }

func (p *Parser) parseExpr() (*Expr, error) {
	switch p.cur().kind {
	case tokKwLet:
		return p.parseLet()
	case tokKwMatch:
		return p.parseMatch()
	default:
		return p.parseApp()
	}
}

func atomStarts(k tokKind) bool {
	switch k {
	case tokIdent, tokInt, tokFloat, tokString, tokChar, tokByte, tokLParen:
		return true
	default:
		return false
	}
}

func (p *Parser) parseApp() (*Expr, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	var args []Expr
	for atomStarts(p.cur().kind) {
		a, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		args = append(args, *a)
	}
	if len(args) == 0 {
		return first, nil
	}
	if first.Kind == ExprData {
		d := first.Data.(DataExprData)
		d.Args = append(append([]Expr{}, d.Args...), args...)
		first.Data = d
		return first, nil
	}
	return p.alloc.AllocExpr(Expr{Kind: ExprCall, Data: CallData{Callee: first, Args: args}}), nil
}

func (p *Parser) parseAtom() (*Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokInt, tokFloat, tokString, tokChar, tokByte:
		p.advance()
		return p.alloc.AllocExpr(Expr{Kind: ExprConst, Data: ConstData{Literal: t.lit}}), nil
	case tokIdent:
		p.advance()
		name := p.intern(t.text)
		if isConstructorName(p.strings, name) {
			return p.alloc.AllocExpr(Expr{Kind: ExprData, Data: DataExprData{Tag: Identifier{Name: name}}}), nil
		}
		return p.alloc.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: Identifier{Name: name}}}), nil
	case tokLParen:
		p.advance()
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind == tokComma {
			elems := []Expr{*first}
			for p.cur().kind == tokComma {
				p.advance()
				next, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, *next)
			}
			if _, err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
			return p.alloc.AllocExpr(Expr{Kind: ExprData, Data: DataExprData{Tag: SentinelTag, Args: elems}}), nil
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return first, nil
	default:
		return nil, fmt.Errorf("coreir: parse: unexpected token %q", t.text)
	}
}

func (p *Parser) parseLet() (*Expr, error) {
	p.advance() // 'let'
	if p.cur().kind == tokKwRec {
		p.advance()
		var closures []Closure
		for {
			c, err := p.parseClosure()
			if err != nil {
				return nil, err
			}
			closures = append(closures, c)
			if p.cur().kind != tokKwAnd {
				break
			}
			p.advance()
		}
		if _, err := p.expect(tokKwIn, "in"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lb := p.alloc.AllocLetBinding(LetBinding{Expr: NewNamedRecursive(closures)})
		return p.alloc.AllocExpr(Expr{Kind: ExprLet, Data: LetExprData{Binding: lb, Body: body}}), nil
	}

	nameTok, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEquals, "="); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokKwIn, "in"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	lb := p.alloc.AllocLetBinding(LetBinding{
		Name: Identifier{Name: p.intern(nameTok.text)},
		Expr: NewNamedExpr(value),
	})
	return p.alloc.AllocExpr(Expr{Kind: ExprLet, Data: LetExprData{Binding: lb, Body: body}}), nil
}

func (p *Parser) parseClosure() (Closure, error) {
	nameTok, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return Closure{}, err
	}
	var args []Identifier
	for p.cur().kind == tokIdent {
		argTok := p.advance()
		args = append(args, Identifier{Name: p.intern(argTok.text)})
	}
	if _, err := p.expect(tokEquals, "="); err != nil {
		return Closure{}, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return Closure{}, err
	}
	return Closure{Name: Identifier{Name: p.intern(nameTok.text)}, Args: args, Expr: body}, nil
}

func (p *Parser) parseMatch() (*Expr, error) {
	p.advance() // 'match'
	scrutinee, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokKwWith, "with"); err != nil {
		return nil, err
	}
	var alts []Alternative
	for p.cur().kind == tokPipe {
		p.advance()
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokArrow, "->"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		alts = append(alts, Alternative{Pattern: pat, Expr: body})
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("coreir: parse: match with no alternatives")
	}
	if _, err := p.expect(tokKwEnd, "end"); err != nil {
		return nil, err
	}
	return p.alloc.AllocExpr(Expr{Kind: ExprMatch, Data: MatchData{Scrutinee: scrutinee, Alternatives: alts}}), nil
}

func (p *Parser) parsePattern() (Pattern, error) {
	t := p.cur()
	switch t.kind {
	case tokInt, tokFloat, tokString, tokChar, tokByte:
		p.advance()
		return NewLiteralPattern(t.lit), nil
	case tokIdent:
		p.advance()
		name := p.intern(t.text)
		if !isConstructorName(p.strings, name) {
			return NewIdentPattern(Identifier{Name: name}), nil
		}
		var fields []Identifier
		for p.cur().kind == tokIdent {
			argTok := p.advance()
			fields = append(fields, Identifier{Name: p.intern(argTok.text)})
		}
		return NewConstructorPattern(Identifier{Name: name}, fields), nil
	case tokLBrace:
		p.advance()
		var fields []RecordField
		for {
			nameTok, err := p.expect(tokIdent, "field name")
			if err != nil {
				return Pattern{}, err
			}
			field := RecordField{Field: Identifier{Name: p.intern(nameTok.text)}, Rename: source.NoStringID}
			if p.cur().kind == tokEquals {
				p.advance()
				renameTok, err := p.expect(tokIdent, "binding name")
				if err != nil {
					return Pattern{}, err
				}
				field.Rename = p.intern(renameTok.text)
			}
			fields = append(fields, field)
			if p.cur().kind != tokComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(tokRBrace, "}"); err != nil {
			return Pattern{}, err
		}
		return NewRecordPattern(fields), nil
	default:
		return Pattern{}, fmt.Errorf("coreir: parse: unexpected token %q in pattern", t.text)
	}
}

// --- lexer ---

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokChar
	tokByte
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokComma
	tokEquals
	tokPipe
	tokArrow
	tokKwLet
	tokKwRec
	tokKwAnd
	tokKwIn
	tokKwMatch
	tokKwWith
	tokKwEnd
)

type coreToken struct {
	kind tokKind
	text string
	lit  Literal
}

var coreKeywords = map[string]tokKind{
	"let":   tokKwLet,
	"rec":   tokKwRec,
	"and":   tokKwAnd,
	"in":    tokKwIn,
	"match": tokKwMatch,
	"with":  tokKwWith,
	"end":   tokKwEnd,
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '@' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lexCore(text string) ([]coreToken, error) {
	var toks []coreToken
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			toks = append(toks, coreToken{kind: tokLParen, text: "("})
			i += size
		case r == ')':
			toks = append(toks, coreToken{kind: tokRParen, text: ")"})
			i += size
		case r == '{':
			toks = append(toks, coreToken{kind: tokLBrace, text: "{"})
			i += size
		case r == '}':
			toks = append(toks, coreToken{kind: tokRBrace, text: "}"})
			i += size
		case r == ',':
			toks = append(toks, coreToken{kind: tokComma, text: ","})
			i += size
		case r == '|':
			toks = append(toks, coreToken{kind: tokPipe, text: "|"})
			i += size
		case r == '=':
			i += size
			toks = append(toks, coreToken{kind: tokEquals, text: "="})
		case r == '-' && i+1 < len(text) && text[i+1] == '>':
			toks = append(toks, coreToken{kind: tokArrow, text: "->"})
			i += 2
		case r == '"':
			tok, n, err := lexString(text, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case r == '\'':
			tok, n, err := lexChar(text, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case unicode.IsDigit(r):
			tok, n, err := lexNumber(text, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case isIdentStart(r):
			j := i + size
			for j < len(text) {
				rr, sz := utf8.DecodeRuneInString(text[j:])
				if !isIdentCont(rr) {
					break
				}
				j += sz
			}
			word := text[i:j]
			if kw, ok := coreKeywords[word]; ok {
				toks = append(toks, coreToken{kind: kw, text: word})
			} else {
				toks = append(toks, coreToken{kind: tokIdent, text: word})
			}
			i = j
		default:
			return nil, fmt.Errorf("coreir: parse: unexpected character %q", r)
		}
	}
	return toks, nil
}

func lexString(text string, start int) (coreToken, int, error) {
	i := start + 1
	var b strings.Builder
	b.WriteByte('"')
	for i < len(text) {
		c := text[i]
		b.WriteByte(c)
		if c == '\\' && i+1 < len(text) {
			i++
			b.WriteByte(text[i])
			i++
			continue
		}
		i++
		if c == '"' {
			s, err := strconv.Unquote(b.String())
			if err != nil {
				return coreToken{}, 0, fmt.Errorf("coreir: parse: invalid string literal: %w", err)
			}
			return coreToken{kind: tokString, text: b.String(), lit: Literal{Kind: LiteralString, String: s}}, i, nil
		}
	}
	return coreToken{}, 0, fmt.Errorf("coreir: parse: unterminated string literal")
}

func lexChar(text string, start int) (coreToken, int, error) {
	i := start + 1
	var b strings.Builder
	b.WriteByte('\'')
	for i < len(text) {
		c := text[i]
		b.WriteByte(c)
		if c == '\\' && i+1 < len(text) {
			i++
			b.WriteByte(text[i])
			i++
			continue
		}
		i++
		if c == '\'' {
			r, _, _, err := strconv.UnquoteChar(b.String()[1:len(b.String())-1], '\'')
			if err != nil {
				return coreToken{}, 0, fmt.Errorf("coreir: parse: invalid char literal: %w", err)
			}
			return coreToken{kind: tokChar, text: b.String(), lit: Literal{Kind: LiteralChar, Char: r}}, i, nil
		}
	}
	return coreToken{}, 0, fmt.Errorf("coreir: parse: unterminated char literal")
}

func lexNumber(text string, start int) (coreToken, int, error) {
	i := start
	for i < len(text) && unicode.IsDigit(rune(text[i])) {
		i++
	}
	digits := text[start:i]
	if i < len(text) && text[i] == '.' && i+1 < len(text) && unicode.IsDigit(rune(text[i+1])) {
		j := i + 1
		for j < len(text) && unicode.IsDigit(rune(text[j])) {
			j++
		}
		f, err := strconv.ParseFloat(text[start:j], 64)
		if err != nil {
			return coreToken{}, 0, fmt.Errorf("coreir: parse: invalid float literal: %w", err)
		}
		return coreToken{kind: tokFloat, text: text[start:j], lit: NewFloatLiteral(f)}, j, nil
	}
	if i < len(text) && text[i] == 'b' && (i+1 >= len(text) || !isIdentCont(rune(text[i+1]))) {
		n, err := strconv.ParseUint(digits, 10, 8)
		if err != nil {
			return coreToken{}, 0, fmt.Errorf("coreir: parse: invalid byte literal: %w", err)
		}
		return coreToken{kind: tokByte, text: text[start : i+1], lit: Literal{Kind: LiteralByte, Byte: byte(n)}}, i + 1, nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return coreToken{}, 0, fmt.Errorf("coreir: parse: invalid int literal: %w", err)
	}
	return coreToken{kind: tokInt, text: digits, lit: Literal{Kind: LiteralInt, Int: n}}, i, nil
}
