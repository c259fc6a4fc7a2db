// Package pathmatch compiles the file-access controller's readable,
// writable, and listable pattern options into predicates over a path
// string. A pattern is a literal string, a "re:"-prefixed regex-in-string,
// a *regexp.Regexp, or an array of any of those.
package pathmatch

import (
	"regexp"
	"strings"

	"github.com/oriys/ctxguard/internal/errs"
)

// Matcher is a compiled predicate over a (pre-normalised) path string.
// Matchers are immutable once returned by ToMatcher.
type Matcher func(string) bool

var none Matcher = func(string) bool { return false }

// ToMatcher compiles pattern into a Matcher, trying each compilation rule
// in order. It is exported as a test hook — the library itself only ever
// calls it through the FileAccessController constructor.
func ToMatcher(pattern any) (Matcher, error) {
	switch v := pattern.(type) {
	case nil:
		return none, nil
	case *regexp.Regexp:
		re := v
		return func(s string) bool { return re.MatchString(s) }, nil
	case string:
		return compileString(v)
	case []any:
		return compileArray(v)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		return compileArray(arr)
	default:
		return nil, errs.NewInvalidArgType("pattern", pattern)
	}
}

func compileArray(items []any) (Matcher, error) {
	if len(items) == 0 {
		return none, nil
	}
	subs := make([]Matcher, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case string, *regexp.Regexp:
			m, err := ToMatcher(item)
			if err != nil {
				return nil, err
			}
			subs = append(subs, m)
		default:
			return nil, errs.NewInvalidArgType("pattern[]", item)
		}
	}
	return func(s string) bool {
		for _, m := range subs {
			if m(s) {
				return true
			}
		}
		return false
	}, nil
}

func compileString(pattern string) (Matcher, error) {
	if rest, ok := strings.CutPrefix(pattern, "re:"); ok {
		re, err := regexp.Compile(rest)
		if err != nil {
			return nil, errs.NewInvalidArgValue("pattern", pattern)
		}
		return func(s string) bool { return re.MatchString(s) }, nil
	}

	hasGlob := strings.ContainsAny(pattern, "*?")
	if !hasGlob {
		if n := len(pattern); n > 0 {
			last := pattern[n-1]
			if last == '/' || last == '\\' {
				return compileDirPrefix(pattern), nil
			}
		}
		return compileExact(pattern), nil
	}
	return compileGlob(pattern), nil
}

func compileExact(pattern string) Matcher {
	norm := NormalizePath(pattern)
	return func(s string) bool { return NormalizePath(s) == norm }
}

func compileDirPrefix(pattern string) Matcher {
	norm := NormalizePath(pattern)
	prefix := strings.TrimRight(norm, "/")
	needle := prefix + "/"
	return func(s string) bool {
		return strings.HasPrefix(NormalizePath(s), needle)
	}
}

type globSegment struct {
	sentinel bool
	re       *regexp.Regexp
}

// compileGlob implements rule 6: split on separators, compile each
// non-empty segment with ? -> "." and * -> ".*?" (other metacharacters
// escaped), and encode a trailing empty segment (the pattern ended with a
// separator) as the "**" sentinel meaning "any sequence of remaining
// segments". This is not a general "**" operator anywhere else in the
// pattern — only this trailing-separator form produces it.
func compileGlob(pattern string) Matcher {
	norm := NormalizePath(pattern)
	parts := splitSeparators(norm)

	segs := make([]globSegment, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			if i == len(parts)-1 && len(parts) > 1 {
				segs = append(segs, globSegment{sentinel: true})
			}
			continue
		}
		segs = append(segs, globSegment{re: compileSegmentRegex(p)})
	}

	return func(input string) bool {
		inParts := splitSeparators(NormalizePath(input))
		si := 0
		for _, seg := range segs {
			if seg.sentinel {
				return true
			}
			for si < len(inParts) && inParts[si] == "" {
				si++
			}
			if si >= len(inParts) {
				return false
			}
			if !seg.re.MatchString(inParts[si]) {
				return false
			}
			si++
		}
		for si < len(inParts) && inParts[si] == "" {
			si++
		}
		return si == len(inParts)
	}
}

func splitSeparators(s string) []string {
	s = strings.ReplaceAll(s, "\\", "/")
	return strings.Split(s, "/")
}

func compileSegmentRegex(segment string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range segment {
		switch r {
		case '*':
			b.WriteString(".*?")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
