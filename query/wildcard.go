package query

import (
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenAnyChar
	tokenAnyRun
)

type token struct {
	kind tokenKind
	r    rune
}

// WildcardQuery matches a whole log message against a wildcard pattern.
//
// Pattern syntax:
//   - '*' matches any run of characters, including none
//   - '?' matches exactly one character
//   - '\' makes the next character literal; a trailing '\' is itself literal
//
// The zero value matches only the empty message.
type WildcardQuery struct {
	pattern       string
	caseSensitive bool
	tokens        []token
}

// NewWildcardQuery compiles pattern.
func NewWildcardQuery(pattern string, caseSensitive bool) WildcardQuery {
	return WildcardQuery{
		pattern:       pattern,
		caseSensitive: caseSensitive,
		tokens:        compile(pattern),
	}
}

// Pattern returns the source pattern.
func (w WildcardQuery) Pattern() string { return w.pattern }

// CaseSensitive reports whether literals are compared case-sensitively.
func (w WildcardQuery) CaseSensitive() bool { return w.caseSensitive }

func (w WildcardQuery) String() string {
	if w.caseSensitive {
		return w.pattern
	}

	return w.pattern + " (case-insensitive)"
}

// Matches reports whether the whole message matches the pattern.
func (w WildcardQuery) Matches(message string) bool {
	tokens := w.tokens
	ti, si := 0, 0
	starTi, starSi := -1, 0

	for si < len(message) {
		r, size := utf8.DecodeRuneInString(message[si:])
		if ti < len(tokens) {
			switch t := tokens[ti]; t.kind {
			case tokenAnyRun:
				starTi, starSi = ti, si
				ti++

				continue
			case tokenAnyChar:
				ti++
				si += size

				continue
			case tokenLiteral:
				if w.equal(t.r, r) {
					ti++
					si += size

					continue
				}
			}
		}

		// mismatch: let the last '*' absorb one more character
		if starTi < 0 {
			return false
		}
		_, skip := utf8.DecodeRuneInString(message[starSi:])
		starSi += skip
		si = starSi
		ti = starTi + 1
	}

	for ti < len(tokens) && tokens[ti].kind == tokenAnyRun {
		ti++
	}

	return ti == len(tokens)
}

func (w WildcardQuery) equal(a, b rune) bool {
	if a == b {
		return true
	}
	if w.caseSensitive {
		return false
	}

	return unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}

func compile(pattern string) []token {
	tokens := make([]token, 0, len(pattern))
	escaped := false
	for _, r := range pattern {
		if escaped {
			tokens = append(tokens, token{kind: tokenLiteral, r: r})
			escaped = false

			continue
		}

		switch r {
		case '\\':
			escaped = true
		case '*':
			// consecutive stars are equivalent to one
			if n := len(tokens); n > 0 && tokens[n-1].kind == tokenAnyRun {
				continue
			}
			tokens = append(tokens, token{kind: tokenAnyRun})
		case '?':
			tokens = append(tokens, token{kind: tokenAnyChar})
		default:
			tokens = append(tokens, token{kind: tokenLiteral, r: r})
		}
	}
	if escaped {
		tokens = append(tokens, token{kind: tokenLiteral, r: '\\'})
	}

	return tokens
}
