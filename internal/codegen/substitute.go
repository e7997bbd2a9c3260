// Package codegen rewrites abstract per-phase code into the syntax expected by
// the GeNN model definition: known constants are folded into the text
// (Freeze) and model variables are marked for substitution (Decorate).
package codegen

import (
	"regexp"
	"strings"
	"sync"

	"github.com/leapstack-labs/b2genn/pkg/core"
)

var (
	wordPatternsMu sync.Mutex
	wordPatterns   = map[string]*regexp.Regexp{}
)

func wordPattern(word string) *regexp.Regexp {
	wordPatternsMu.Lock()
	defer wordPatternsMu.Unlock()
	if re, ok := wordPatterns[word]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	wordPatterns[word] = re
	return re
}

// WordSubstitute replaces whole-word occurrences of each key with its value.
// Substitutions are applied one after the other, in the given order.
func WordSubstitute(code string, subs ...[2]string) string {
	for _, s := range subs {
		if s[0] == "" || !strings.Contains(code, s[0]) {
			continue
		}
		code = wordPattern(s[0]).ReplaceAllLiteralString(code, s[1])
	}
	return code
}

// ContainsWord reports whether word occurs in code as a whole word.
func ContainsWord(code, word string) bool {
	if word == "" || !strings.Contains(code, word) {
		return false
	}
	return wordPattern(word).MatchString(code)
}

// Freeze inlines every binding with a build-time value: bare numbers always,
// and scalar, constant, read-only variables that are not attributes.
// Negative values are parenthesised.
func Freeze(code string, ns core.Namespace) string {
	for _, b := range ns {
		if b.Num != nil {
			code = WordSubstitute(code, [2]string{b.Name, b.Num.Literal()})
			continue
		}
		literal, ok := frozenLiteral(b.Var)
		if !ok {
			continue
		}
		code = WordSubstitute(code, [2]string{b.Name, literal})
	}
	return code
}

func frozenLiteral(v core.Variable) (string, bool) {
	if v == nil {
		return "", false
	}
	if _, isAttr := v.(*core.AttributeVariable); isAttr {
		return "", false
	}
	info := v.Info()
	if !info.Scalar || !info.Constant || !info.ReadOnly {
		return "", false
	}
	value, ok := core.KnownValue(v)
	if !ok {
		return "", false
	}
	literal := core.FormatLiteral(value, info.DType)
	if value < 0 {
		literal = "(" + literal + ")"
	}
	return literal, true
}

// TimestepMacro replaces the bare dt symbol in decorated code.
const TimestepMacro = "DT"

// Decorate wraps every variable and parameter name as $(name), replaces dt by
// the DT macro, trims the result and escapes it for a C string literal.
func Decorate(code string, variables, parameters []string) string {
	for _, v := range variables {
		code = WordSubstitute(code, [2]string{v, "$(" + v + ")"})
	}
	for _, p := range parameters {
		code = WordSubstitute(code, [2]string{p, "$(" + p + ")"})
	}
	code = WordSubstitute(code, [2]string{"dt", TimestepMacro})
	code = strings.TrimSpace(code)
	return Escape(code)
}

// Escape makes code embeddable in a generated string literal: every newline
// becomes an escaped newline followed by a line continuation, and double
// quotes are backslash-escaped.
func Escape(code string) string {
	code = strings.ReplaceAll(code, "\n", "\\n\\\n")
	return strings.ReplaceAll(code, `"`, `\"`)
}
