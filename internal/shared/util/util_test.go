package util

import (
	"testing"
)

func TestNormalizeWorkspacePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "CurrentDir", input: "src/./a.h", expected: "src/a.h"},
		{name: "Parent", input: "src/lib/../inc/a.h", expected: "src/inc/a.h"},
		{name: "AboveRoot", input: "../../a.h", expected: "a.h"},
		{name: "DoubleSlash", input: "src//a.h", expected: "src/a.h"},
		{name: "Backslash", input: `src\lib\a.h`, expected: "src/lib/a.h"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeWorkspacePath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestPathParts(t *testing.T) {
	t.Parallel()

	if got := Dirname("src/a.c"); got != "src" {
		t.Fatalf("Dirname: expected src, got %q", got)
	}
	if got := Dirname("a.c"); got != "" {
		t.Fatalf("Dirname: expected empty, got %q", got)
	}
	if got := Basename("src/lib/util.hpp"); got != "util.hpp" {
		t.Fatalf("Basename: expected util.hpp, got %q", got)
	}
	if got := Ext("src/Util.HPP"); got != "hpp" {
		t.Fatalf("Ext: expected hpp, got %q", got)
	}
	if got := Ext("Makefile"); got != "" {
		t.Fatalf("Ext: expected empty, got %q", got)
	}
	if got := Stem("src/archive.tar.gz"); got != "archive.tar" {
		t.Fatalf("Stem: expected archive.tar, got %q", got)
	}
	if got := Stem("home/.bashrc"); got != ".bashrc" {
		t.Fatalf("Stem: expected .bashrc, got %q", got)
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string]int{"b": 1, "a": 2, "c": 3})
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}
