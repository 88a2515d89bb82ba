package dirtree

import (
	"bufio"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// IgnoreRules applies gitignore-style patterns to paths relative to the
// composition root. They complement Exclude, which only sees entry
// names.
//
// Supported syntax: blank lines and "#" comments are skipped, "!"
// negates, a trailing "/" restricts a rule to directories, a leading or
// inner "/" anchors the rule to the full path, and "*", "?", "[...]" and
// "**" glob. The last matching rule wins.
type IgnoreRules struct {
	rules []ignoreRule
}

type ignoreRule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
	regex    *regexp.Regexp
}

// ParseIgnoreRules compiles lines in order.
func ParseIgnoreRules(lines []string) *IgnoreRules {
	ir := &IgnoreRules{}
	for _, line := range lines {
		if r, ok := parseIgnoreLine(line); ok {
			ir.rules = append(ir.rules, r)
		}
	}
	return ir
}

// ReadIgnoreFile parses the ignore file at name on fs.
func ReadIgnoreFile(fs afero.Fs, name string) (*IgnoreRules, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", name, err)
	}
	return ParseIgnoreRules(lines), nil
}

func parseIgnoreLine(line string) (ignoreRule, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}

	var r ignoreRule
	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimLeft(line, "/")
	}
	if line == "" {
		return ignoreRule{}, false
	}
	r.anchored = r.anchored || strings.Contains(line, "/")
	r.pattern = line
	if strings.Contains(line, "**") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			r.regex = re
		}
	}
	return r, true
}

// Len reports the number of compiled rules.
func (ir *IgnoreRules) Len() int {
	if ir == nil {
		return 0
	}
	return len(ir.rules)
}

// Ignored reports whether rel, a slash-separated path relative to the
// root, is ignored. Rules are checked against the entry itself; an
// ignored directory is never descended into, so its contents need no
// separate match.
func (ir *IgnoreRules) Ignored(rel string, isDir bool) bool {
	if ir == nil {
		return false
	}
	base := path.Base(rel)
	ignored := false
	for _, r := range ir.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := base
		if r.anchored {
			target = rel
		}
		if r.match(target) {
			ignored = !r.negated
		}
	}
	return ignored
}

func (r ignoreRule) match(target string) bool {
	if r.regex != nil {
		return r.regex.MatchString(target)
	}
	matched, _ := path.Match(r.pattern, target)
	return matched
}

// globToRegex translates a pattern containing "**". A "**/" segment
// matches zero or more directories.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; {
		case ch == '*' && i+1 < len(pattern) && pattern[i+1] == '*':
			if i+2 < len(pattern) && pattern[i+2] == '/' {
				b.WriteString("(?:.*/)?")
				i += 2
			} else {
				b.WriteString(".*")
				i++
			}
		case ch == '*':
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteString("$")
	return b.String()
}
