package skyline

import (
	"strconv"
	"strings"
)

// TokenKind discriminates program tokens.
type TokenKind int

const (
	// TokenString is a bare word literal.
	TokenString TokenKind = iota
	// TokenNumber is a numeric literal, scientific notation included.
	TokenNumber
	// TokenOperator is a ":"-prefixed operator word.
	TokenOperator
	// TokenList is a "(",...,")" word list.
	TokenList
)

func (k TokenKind) String() string {
	switch k {
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenOperator:
		return "operator"
	case TokenList:
		return "list"
	}
	return "unknown"
}

// Token is a single program token. Text carries the raw word; Num is set for
// TokenNumber; List is set for TokenList; Offset is the byte position of the
// token in the program text.
type Token struct {
	Kind   TokenKind
	Text   string
	Num    float64
	List   []string
	Offset int
}

// Program is an ordered sequence of tokens ready for the evaluator. The
// tokenizer binds no meaning to operators.
type Program []Token

// ParseProgram tokenizes a comma-separated postfix program. Tokens beginning
// with ":" are operators, "(" and ")" delimit a word list, tokens that parse
// as numbers (including scientific notation like 50e3) are numeric, and
// everything else is a string literal. An empty input is a valid empty
// program.
func ParseProgram(text string) (Program, error) {
	var prog Program
	var list []string
	listOpen := false
	listOffset := 0

	pos := 0
	for _, word := range strings.Split(text, ",") {
		offset := pos
		pos += len(word) + 1
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}

		switch {
		case word == "(":
			if listOpen {
				return nil, newParseError(offset, "nested list")
			}
			listOpen = true
			listOffset = offset
			list = nil
		case word == ")":
			if !listOpen {
				return nil, newParseError(offset, "unbalanced )")
			}
			listOpen = false
			prog = append(prog, Token{Kind: TokenList, List: list, Offset: listOffset})
		case listOpen:
			list = append(list, word)
		case strings.HasPrefix(word, ":"):
			prog = append(prog, Token{Kind: TokenOperator, Text: word, Offset: offset})
		case looksNumeric(word):
			n, err := strconv.ParseFloat(word, 64)
			if err != nil {
				return nil, newParseError(offset, "malformed number %q", word)
			}
			prog = append(prog, Token{Kind: TokenNumber, Text: word, Num: n, Offset: offset})
		default:
			prog = append(prog, Token{Kind: TokenString, Text: word, Offset: offset})
		}
	}
	if listOpen {
		return nil, newParseError(listOffset, "unbalanced (")
	}
	return prog, nil
}

// looksNumeric reports whether a word is intended as a number literal: it
// starts with a digit, or with a sign or decimal point followed by a digit.
// Intent matters because a malformed number must fail rather than silently
// fall back to a string literal.
func looksNumeric(word string) bool {
	if word == "" {
		return false
	}
	c := word[0]
	if c >= '0' && c <= '9' {
		return true
	}
	if (c == '-' || c == '+' || c == '.') && len(word) > 1 {
		d := word[1]
		return d >= '0' && d <= '9' || (c != '.' && d == '.' && len(word) > 2 && word[2] >= '0' && word[2] <= '9')
	}
	return false
}
