package gointerp

import (
	"go/scanner"
	"go/token"
	"strings"
)

// Chunk is a run of top-level code the interpreter evaluates in one call.
type Chunk struct {
	Decl bool
	Code string
}

// topLevel is one top-level declaration or statement.
type topLevel struct {
	decl      bool
	startLine int // 0-based
	endLine   int
}

// Split groups lowered lines into alternating declaration and statement
// chunks. The interpreter evaluates a source either as a file of
// declarations or as a statement list, never both at once.
//
// A chunk that does not begin at the start of the unit is prefixed with a
// //line directive so positions stay correct.
func Split(lines []string) []Chunk {
	src := strings.Join(lines, "\n")
	items := scanTopLevel(src)
	if len(items) == 0 {
		return nil
	}

	pos := positions(lines)
	var chunks []Chunk
	start := 0
	for i := 0; i < len(items); {
		j := i
		for j+1 < len(items) && items[j+1].decl == items[i].decl {
			j++
		}
		end := items[j].endLine
		// statements sharing the boundary line stay together
		for j+1 < len(items) && items[j+1].startLine <= end {
			j++
			end = items[j].endLine
		}

		for start < items[i].startLine && strings.TrimSpace(lines[start]) == "" {
			start++
		}

		var b strings.Builder
		if start > 0 && pos[start].file != "" && !isLineDirective(lines[start]) {
			b.WriteString(lineDirective(pos[start].file, pos[start].line))
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(lines[start:end+1], "\n"))
		chunks = append(chunks, Chunk{Decl: items[i].decl, Code: b.String()})

		start = end + 1
		i = j + 1
	}
	return chunks
}

func isLineDirective(line string) bool {
	_, _, ok := parseLineDirective(line)
	return ok
}

// scanTopLevel finds top-level statement boundaries using the Go scanner's
// automatic semicolon insertion. Scan errors are ignored; the interpreter
// reports them with proper positions.
func scanTopLevel(src string) []topLevel {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var s scanner.Scanner
	s.Init(file, []byte(src), func(token.Position, string) {}, 0)

	type tok struct {
		tok  token.Token
		line int
	}
	var toks []tok
	for {
		p, t, _ := s.Scan()
		if t == token.EOF {
			break
		}
		// unadjusted: //line comments must not move chunk boundaries
		toks = append(toks, tok{tok: t, line: fset.PositionFor(p, false).Line - 1})
	}

	var items []topLevel
	depth := 0
	begin := -1
	for i, t := range toks {
		if begin < 0 {
			if t.tok == token.SEMICOLON {
				continue
			}
			begin = i
		}
		switch t.tok {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			if depth > 0 {
				depth--
			}
		}
		last := i == len(toks)-1
		if (t.tok == token.SEMICOLON && depth == 0) || last {
			stmt := make([]token.Token, 0, i-begin+1)
			for _, st := range toks[begin : i+1] {
				stmt = append(stmt, st.tok)
			}
			items = append(items, topLevel{
				decl:      isDecl(stmt),
				startLine: toks[begin].line,
				endLine:   t.line,
			})
			begin = -1
		}
	}
	return items
}

// isDecl reports whether a top-level token run is a declaration.
func isDecl(toks []token.Token) bool {
	if len(toks) == 0 {
		return false
	}
	switch toks[0] {
	case token.TYPE, token.IMPORT, token.CONST, token.VAR:
		return true
	case token.FUNC:
		if len(toks) > 1 && toks[1] == token.IDENT {
			return true
		}
		// method: func (recv) Name(...)
		if len(toks) > 1 && toks[1] == token.LPAREN {
			depth := 0
			for i := 1; i < len(toks); i++ {
				switch toks[i] {
				case token.LPAREN:
					depth++
				case token.RPAREN:
					depth--
					if depth == 0 {
						return i+1 < len(toks) && toks[i+1] == token.IDENT
					}
				}
			}
		}
	}
	return false
}
