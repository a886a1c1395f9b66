package minhash

import "regexp"

// tokenPattern recognizes identifiers of two or more characters, integer
// literals, quoted string literals and a few multi-character operators.
var tokenPattern = regexp.MustCompile(`[A-Za-z_]\w+|==|!=|<=|>=|=>|&&|\|\||\d+|'[^']*'|"[^"]*"`)

// Tokenize returns the tokens of s in order of appearance. Characters that
// are not part of a token are discarded.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}
