// Package normalize strips comments and insignificant whitespace from
// callable source text before classification.
//
// Comment detection is lexical: comment markers inside string, template or
// regular expression literals are treated as comments. Callers needing
// literal-aware handling should keep comments.
package normalize

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
)

// Options selects what Normalize preserves. The zero value strips both.
type Options struct {
	KeepComments   bool
	KeepWhitespace bool
}

var (
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

	// A block comment that does not contain "*/" before its terminator.
	blockComment = regexp.MustCompile(`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`)
	lineComment  = regexp.MustCompile(`//[^\n\x{2028}\x{2029}]*`)

	lineBreaks = regexp.MustCompile(`\n+`)
)

// Normalize returns src with comments and whitespace removed as selected by
// opts. Line endings are always normalized to "\n".
//
// When whitespace is kept, a comment that sits alone on its line is removed
// together with the line, so no blank residue is left behind.
func Normalize(src string, opts Options) string {
	out := lineEndings.Replace(src)

	if !opts.KeepComments {
		out = stripComments(out, opts.KeepWhitespace)
	}
	if !opts.KeepWhitespace {
		out = StripWhitespace(out)
	}
	return out
}

// StripComments removes every block comment from LF-terminated source, then
// every line comment from what remains.
func StripComments(src string) string {
	return stripComments(src, false)
}

func stripComments(src string, dropLines bool) string {
	out := removeAll(src, blockComment, dropLines)
	return removeAll(out, lineComment, dropLines)
}

// removeAll deletes the matches of re from src. With dropLines set, a match
// left alone on its line also takes the indentation and the line break.
func removeAll(src string, re *regexp.Regexp, dropLines bool) string {
	out := make([]byte, 0, len(src))
	last := 0
	for _, m := range re.FindAllStringIndex(src, -1) {
		out = append(out, src[last:m[0]]...)
		last = m[1]
		if !dropLines {
			continue
		}
		lineStart := bytes.LastIndexByte(out, '\n') + 1
		rest := strings.TrimLeft(src[last:], " \t")
		if isBlank(out[lineStart:]) && strings.HasPrefix(rest, "\n") {
			out = out[:lineStart]
			last = len(src) - len(rest) + 1
		}
	}
	return string(append(out, src[last:]...))
}

func isBlank(b []byte) bool {
	return len(bytes.Trim(b, " \t")) == 0
}

// StripWhitespace trims every line, drops empty lines and joins the rest
// with "\n".
func StripWhitespace(src string) string {
	lines := lineBreaks.Split(src, -1)
	kept := lines[:0]
	for _, line := range lines {
		line = Trim(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Trim removes leading and trailing ECMAScript whitespace and line
// terminators from s.
func Trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

func isSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}
