package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies a token class.
type Kind int

const (
	EOF Kind = iota
	Number
	Name
	String
	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	LParen
	RParen
	LBracket
	RBracket
	Comma
	Assign
)

var kindNames = map[Kind]string{
	EOF:      "end of input",
	Number:   "number",
	Name:     "identifier",
	String:   "string",
	Plus:     "'+'",
	Minus:    "'-'",
	Star:     "'*'",
	Slash:    "'/'",
	Percent:  "'%'",
	Caret:    "'^'",
	LParen:   "'('",
	RParen:   "')'",
	LBracket: "'['",
	RBracket: "']'",
	Comma:    "','",
	Assign:   "'='",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a lexical unit. Pos and End are byte offsets into the lexed text.
type Token struct {
	Kind Kind
	Text string  // raw source text
	Num  float64 // value for Number tokens
	Str  string  // unquoted value for String tokens
	Pos  int
	End  int
}

// Is reports whether t is an identifier equal to word, ignoring case.
func (t Token) Is(word string) bool {
	return t.Kind == Name && strings.EqualFold(t.Text, word)
}

// SyntaxError reports a lexing or parsing failure at a byte offset.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("col %d: %s", e.Pos+1, e.Message)
}

var singleChar = map[rune]Kind{
	'+': Plus,
	'-': Minus,
	'*': Star,
	'/': Slash,
	'%': Percent,
	'^': Caret,
	'(': LParen,
	')': RParen,
	'[': LBracket,
	']': RBracket,
	',': Comma,
	'=': Assign,
}

// Lex splits src into tokens. The returned slice always ends with an EOF
// token positioned at len(src).
func Lex(src string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(rune(src[i+1]))):
			tok, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = tok.End
		case isIdentStart(r):
			j := i + size
			for j < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[j:])
				if !isIdentPart(r2) {
					break
				}
				j += s2
			}
			toks = append(toks, Token{Kind: Name, Text: src[i:j], Pos: i, End: j})
			i = j
		case r == '\'' || r == '"':
			end := strings.IndexRune(src[i+size:], r)
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Message: "unterminated string"}
			}
			j := i + size + end + size
			toks = append(toks, Token{Kind: String, Text: src[i:j], Str: src[i+size : j-size], Pos: i, End: j})
			i = j
		default:
			kind, ok := singleChar[r]
			if !ok {
				return nil, &SyntaxError{Pos: i, Message: fmt.Sprintf("unexpected character %q", r)}
			}
			toks = append(toks, Token{Kind: kind, Text: src[i : i+size], Pos: i, End: i + size})
			i += size
		}
	}
	toks = append(toks, Token{Kind: EOF, Pos: len(src), End: len(src)})
	return toks, nil
}

func lexNumber(src string, start int) (Token, error) {
	i := start
	for i < len(src) && isDigit(rune(src[i])) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(rune(src[i])) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(rune(src[j])) {
			for j < len(src) && isDigit(rune(src[j])) {
				j++
			}
			i = j
		}
	}
	text := src[start:i]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(v, 0) {
		return Token{}, &SyntaxError{Pos: start, Message: fmt.Sprintf("invalid number %q", text)}
	}
	return Token{Kind: Number, Text: text, Num: v, Pos: start, End: i}, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SplitTop splits toks on separator tokens of kind sep that are not nested
// inside parentheses or brackets. A trailing EOF token is dropped.
func SplitTop(toks []Token, sep Kind) [][]Token {
	if n := len(toks); n > 0 && toks[n-1].Kind == EOF {
		toks = toks[:n-1]
	}
	var parts [][]Token
	depth := 0
	start := 0
	for i, t := range toks {
		switch t.Kind {
		case LParen, LBracket:
			depth++
		case RParen, RBracket:
			depth--
		}
		if t.Kind == sep && depth == 0 {
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

// Span returns the source text covered by toks.
func Span(src string, toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	return strings.TrimSpace(src[toks[0].Pos:toks[len(toks)-1].End])
}
