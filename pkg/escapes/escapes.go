// Package escapes implements the backslash escaping rules shared by every
// part of the meta ini syntax: assignment operators, comment characters,
// list separators, pipelines and the curly-bracket interpolation syntax.
//
// A character is escaped when it is immediately preceded by a single
// backslash. A backslash itself cannot be escaped, so a literal backslash
// directly in front of a delimiter is not expressible.
package escapes

import (
	"strings"

	"github.com/arthur-debert/metaini/pkg/errors"
)

// Escape is the escape character.
const Escape = '\\'

// Lookup resolves a dotted key to its value.
type Lookup interface {
	Get(key string) (string, error)
}

// AccessFunc resolves the key found inside a delimited span.
type AccessFunc func(m Lookup, key string) (string, error)

// DefaultAccess is a plain dotted lookup.
func DefaultAccess(m Lookup, key string) (string, error) {
	return m.Get(key)
}

// positions returns the byte offsets of every unescaped occurrence of d in s.
func positions(s, d string) []int {
	if s == "" || d == "" {
		return nil
	}
	var pos []int
	for i := 0; i+len(d) <= len(s); {
		if s[i:i+len(d)] == d && (i == 0 || s[i-1] != Escape) {
			pos = append(pos, i)
			i += len(d)
			continue
		}
		i++
	}
	return pos
}

// ExistsUnescaped reports whether s contains d at a position not preceded
// by a backslash.
func ExistsUnescaped(s, d string) bool {
	return len(positions(s, d)) > 0
}

// CountUnescaped counts the unescaped, non-overlapping occurrences of d in s.
func CountUnescaped(s, d string) int {
	return len(positions(s, d))
}

// IndexUnescaped returns the offset of the first unescaped d in s, or -1.
func IndexUnescaped(s, d string) int {
	pos := positions(s, d)
	if len(pos) == 0 {
		return -1
	}
	return pos[0]
}

// StripEscapes replaces every escaped occurrence of d with d itself.
func StripEscapes(s, d string) string {
	return strings.ReplaceAll(s, string(Escape)+d, d)
}

// StripAll strips the escapes of every character in chars.
func StripAll(s, chars string) string {
	for _, c := range chars {
		s = StripEscapes(s, string(c))
	}
	return s
}

// EscapeAll prefixes every occurrence of the characters in chars with a
// backslash. Already escaped occurrences are left alone.
func EscapeAll(s, chars string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(chars, c) >= 0 && (i == 0 || s[i-1] != Escape) {
			b.WriteByte(Escape)
		}
		b.WriteByte(c)
	}
	return b.String()
}

// SplitUnescaped splits s on unescaped occurrences of d, performing at most
// maxsplit splits (unbounded when maxsplit < 0). Every piece has its
// escaped delimiters unescaped and surrounding whitespace trimmed.
func SplitUnescaped(s, d string, maxsplit int) []string {
	pos := positions(s, d)
	if maxsplit >= 0 && len(pos) > maxsplit {
		pos = pos[:maxsplit]
	}

	pieces := make([]string, 0, len(pos)+1)
	last := 0
	for _, p := range pos {
		pieces = append(pieces, s[last:p])
		last = p + len(d)
	}
	pieces = append(pieces, s[last:])

	for i, p := range pieces {
		pieces[i] = strings.TrimSpace(StripEscapes(p, d))
	}
	return pieces
}

// SplitRaw is SplitUnescaped without unescaping: escape markers survive in
// the pieces so they can be split again later.
func SplitRaw(s, d string, maxsplit int) []string {
	pos := positions(s, d)
	if maxsplit >= 0 && len(pos) > maxsplit {
		pos = pos[:maxsplit]
	}

	pieces := make([]string, 0, len(pos)+1)
	last := 0
	for _, p := range pos {
		pieces = append(pieces, strings.TrimSpace(s[last:p]))
		last = p + len(d)
	}
	return append(pieces, strings.TrimSpace(s[last:]))
}

// Fields splits s on unescaped whitespace and drops empty pieces.
func Fields(s string) []string {
	var out []string
	for _, f := range SplitUnescaped(strings.ReplaceAll(s, "\t", " "), " ", -1) {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// innermost locates the first innermost left...right span: the first
// unescaped right delimiter that follows an unescaped left delimiter, paired
// with the closest such left delimiter.
func innermost(s, left, right string) (start, end int, ok bool) {
	lefts := positions(s, left)
	for _, r := range positions(s, right) {
		start = -1
		for _, l := range lefts {
			if l+len(left) > r {
				break
			}
			start = l
		}
		if start >= 0 {
			return start, r, true
		}
	}
	return 0, 0, false
}

// ExtractDelimited returns the contents of the first innermost span
// delimited by left and right.
func ExtractDelimited(s, left, right string) (string, error) {
	start, end, ok := innermost(s, left, right)
	if !ok {
		return "", errors.Newf(errors.ErrDelimiterNotFound,
			"no %s...%s span in %q", left, right, s)
	}
	return s[start+len(left) : end], nil
}

// ReplaceDelimited replaces the first innermost {...} span of s with the
// value access returns for the key inside it. A nil access means
// DefaultAccess.
func ReplaceDelimited(s string, m Lookup, access AccessFunc) (string, error) {
	if access == nil {
		access = DefaultAccess
	}
	start, end, ok := innermost(s, "{", "}")
	if !ok {
		return "", errors.Newf(errors.ErrDelimiterNotFound, "no {...} span in %q", s)
	}
	value, err := access(m, strings.TrimSpace(s[start+1:end]))
	if err != nil {
		return "", err
	}
	return s[:start] + value + s[end+1:], nil
}
