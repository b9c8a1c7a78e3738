package commands

import (
	"strings"
	"unicode"
)

// Tokenize splits a command line on whitespace and commas.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

// parsed is the transient verb/subject/object structure of one command line.
type parsed struct {
	verb    Verb
	subject string // declarative shape only
	args    []string
}

// parseLine classifies a command line. The grammar never fails: anything
// unrecognized comes back as help.
//
//	imperative:  verb object...
//	declarative: subject verb object...
func parseLine(text string) parsed {
	toks := Tokenize(text)
	if len(toks) == 0 {
		return parsed{verb: VerbHelp}
	}
	first := strings.ToLower(toks[0])
	if isImperative(first) {
		return parsed{verb: Verb(first), args: toks[1:]}
	}
	if len(toks) >= 3 && isDeclarative(strings.ToLower(toks[1])) {
		return parsed{
			verb:    Verb(strings.ToLower(toks[1])),
			subject: toks[0],
			args:    toks[2:],
		}
	}
	return parsed{verb: VerbHelp}
}
