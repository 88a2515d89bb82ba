package dirtree

import (
	"context"
	"testing"

	"github.com/spf13/afero"
)

func TestIgnoreRules_Basename(t *testing.T) {
	ir := ParseIgnoreRules([]string{"*.log", "# comment", "", "build/"})

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"debug.log", false, true},
		{"src/debug.log", false, true},
		{"debug.txt", false, false},
		{"build", true, true},
		{"src/build", true, true},
		{"build", false, false},
		{"# comment", false, false},
	}
	for _, tc := range tests {
		if got := ir.Ignored(tc.rel, tc.isDir); got != tc.want {
			t.Errorf("Ignored(%q, %v) = %v, want %v", tc.rel, tc.isDir, got, tc.want)
		}
	}
	if ir.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ir.Len())
	}
}

func TestIgnoreRules_NegationLastWins(t *testing.T) {
	ir := ParseIgnoreRules([]string{"*.log", "!important.log"})
	if !ir.Ignored("debug.log", false) {
		t.Error("expected debug.log to be ignored")
	}
	if ir.Ignored("important.log", false) {
		t.Error("expected important.log to be kept")
	}

	ir = ParseIgnoreRules([]string{"!important.log", "*.log"})
	if !ir.Ignored("important.log", false) {
		t.Error("later rule should win")
	}
}

func TestIgnoreRules_Anchored(t *testing.T) {
	ir := ParseIgnoreRules([]string{"/vendor", "docs/*.md", "**/testdata/**"})

	tests := []struct {
		rel  string
		want bool
	}{
		{"vendor", true},
		{"src/vendor", false},
		{"docs/a.md", true},
		{"docs/sub/a.md", false},
		{"pkg/x/testdata/f.txt", true},
		{"testdata/f.txt", true},
		{"pkg/testdata", false},
	}
	for _, tc := range tests {
		if got := ir.Ignored(tc.rel, false); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}

func TestIgnoreRules_Nil(t *testing.T) {
	var ir *IgnoreRules
	if ir.Ignored("anything", true) || ir.Len() != 0 {
		t.Error("nil rules must ignore nothing")
	}
}

func TestReadIgnoreFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/rules", []byte("*.o\r\n!keep.o\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ir, err := ReadIgnoreFile(fs, "/rules")
	if err != nil {
		t.Fatalf("ReadIgnoreFile: %v", err)
	}
	if !ir.Ignored("a.o", false) || ir.Ignored("keep.o", false) {
		t.Error("rules from file not applied")
	}
	if _, err := ReadIgnoreFile(fs, "/missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestComposeWithIgnoreRules(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/p/test.txt":       "test",
		"/p/debug.log":      "noise",
		"/p/build/out.o":    "obj",
		"/p/keep/build.txt": "kept",
	}
	for name, body := range files {
		if err := afero.WriteFile(fs, name, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Leaves only test.txt and keep/.
	withRules, err := NewComposer(fs, Options{Ignore: ParseIgnoreRules([]string{"*.log", "build/"})}).Compose(context.Background(), "/p")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if _, ok := withRules.Contents["debug.log"]; ok {
		t.Error("debug.log should be ignored")
	}
	if _, ok := withRules.Directories["build"]; ok {
		t.Error("build/ should be ignored")
	}
	if _, ok := withRules.Contents["keep/build.txt"]; !ok {
		t.Error("keep/build.txt should be kept")
	}

	if err := fs.RemoveAll("/p/build"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Remove("/p/debug.log"); err != nil {
		t.Fatal(err)
	}
	plain, err := NewComposer(fs, Options{}).Compose(context.Background(), "/p")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if plain.Root != withRules.Root {
		t.Errorf("ignored entries changed the root: %s != %s", withRules.Root, plain.Root)
	}
}
