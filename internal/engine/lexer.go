package engine

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

var singleCharTokens = map[rune]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'%': tokPercent,
	'(': tokLParen,
	')': tokRParen,
}

// tokenize splits an ASCII expression into tokens. Any character outside the
// arithmetic alphabet, including the ',' decimal separator, is an error.
func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isDigit(r) || r == '.':
			start := i
			i = scanNumber(src, i)
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &ParseError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
			}
			toks = append(toks, token{kind: tokNumber, text: text, value: v, pos: start})
		case isLetter(r):
			start := i
			for i < len(src) && isLetter(rune(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			kind, ok := singleCharTokens[r]
			if !ok {
				return nil, &ParseError{Pos: i, Msg: "unexpected character " + strconv.QuoteRune(r)}
			}
			toks = append(toks, token{kind: kind, text: string(r), pos: i})
			i += size
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// scanNumber returns the end offset of the number starting at i: digits with
// at most one decimal point. A second point ends the literal.
func scanNumber(src string, i int) int {
	seenDot := false
	for i < len(src) {
		c := src[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !seenDot:
			seenDot = true
		default:
			return i
		}
		i++
	}
	return i
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
