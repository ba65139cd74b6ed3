package parameters

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota
	identifierCode
	openBracketCode
	closeBracketCode
	openParenCode
	closeParenCode
	slashCode
	qualifiedTypeCode
	kindCode
	locationCode
)

var (
	whitespaceToken    = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken    = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
	openBracketToken   = parsly.NewToken(openBracketCode, "[", matcher.NewByte('['))
	closeBracketToken  = parsly.NewToken(closeBracketCode, "]", matcher.NewByte(']'))
	openParenToken     = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken    = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	slashToken         = parsly.NewToken(slashCode, "/", matcher.NewByte('/'))
	qualifiedTypeToken = parsly.NewToken(qualifiedTypeCode, "QualifiedType", &qualifiedTypeMatcher{})
	kindToken          = parsly.NewToken(kindCode, "Kind", &kindMatcher{})
	locationToken      = parsly.NewToken(locationCode, "Location", &locationMatcher{})
)

// identifierMatcher accepts a leading letter or underscore followed by
// letters, digits or underscores.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if !isLetter(input[i]) && !isDigit(input[i]) && input[i] != '_' {
			break
		}
		matched++
	}
	return matched
}

// qualifiedTypeMatcher consumes a type literal up to the matching close
// bracket, tracking nested brackets so slice and map types survive.
type qualifiedTypeMatcher struct{}

func (m *qualifiedTypeMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	depth := 0
	matched := 0
	for i := pos; i < size; i++ {
		switch input[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return matched
			}
			depth--
		}
		matched++
	}
	return matched
}

// kindMatcher consumes the location kind, terminated by '/' or ')'.
type kindMatcher struct{}

func (m *kindMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == '/' || input[i] == ')' {
			break
		}
		matched++
	}
	return matched
}

// locationMatcher consumes the location path, terminated by ')'.
type locationMatcher struct{}

func (m *locationMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == ')' {
			break
		}
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
