package dirtree

import "testing"

func TestExcluderHiddenAlwaysSkipped(t *testing.T) {
	ex := NewExcluder(nil)
	for _, name := range []string{".git", ".env", "."} {
		if !ex.Excluded([]byte(name)) {
			t.Errorf("expected %q to be excluded", name)
		}
	}
	if ex.Excluded([]byte("visible")) {
		t.Error("expected visible to be kept")
	}
}

func TestExcluderSubstring(t *testing.T) {
	ex := NewExcluder([]string{"tmp", "node_modules"})
	tests := map[string]bool{
		"tmp":                true,
		"mytmpdir":           true,
		"node_modules":       true,
		"node_modules_cache": true,
		"src":                false,
		"TMP":                false,
	}
	for name, want := range tests {
		if got := ex.Excluded([]byte(name)); got != want {
			t.Errorf("Excluded(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExcluderDropsEmptyPatterns(t *testing.T) {
	ex := NewExcluder([]string{"", "  ", "a", "a"})
	if got := ex.Patterns(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Patterns = %v, want [a]", got)
	}
	if ex.Excluded([]byte("zzz")) {
		t.Error("an empty pattern must not exclude everything")
	}
}

func TestExcluderKeepsPatternsVerbatim(t *testing.T) {
	ex := NewExcluder([]string{" x"})
	if got := ex.Patterns(); len(got) != 1 || got[0] != " x" {
		t.Fatalf("Patterns = %q, want [\" x\"]", got)
	}
	if ex.Excluded([]byte("x")) {
		t.Error("x must not match the pattern \" x\"")
	}
	if !ex.Excluded([]byte("a x")) {
		t.Error("a x must match the pattern \" x\"")
	}
}
