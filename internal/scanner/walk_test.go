package scanner

import (
	"sort"
	"testing"
)

func TestWalkFilesSkipsDefaultIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "internal/app/app.go", "package app\n")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")
	writeFile(t, root, "vendor/lib/lib.go", "package lib\n")
	writeFile(t, root, "app.min.js", "var a=1\n")

	var visited []string
	err := WalkFiles(root, NewIgnore(), func(path, rel string, size int64) error {
		visited = append(visited, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sort.Strings(visited)
	expected := []string{"internal/app/app.go", "main.go"}
	if len(visited) != len(expected) {
		t.Fatalf("expected %d files, got %d: %v", len(expected), len(visited), visited)
	}
	for i, rel := range expected {
		if visited[i] != rel {
			t.Errorf("expected %s at index %d, got %s", rel, i, visited[i])
		}
	}
}

func TestWalkFilesExtraIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "testdata/fixture.json", "{}\n")

	count := 0
	err := WalkFiles(root, NewIgnore("testdata/"), func(path, rel string, size int64) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 file, got %d", count)
	}
}

func TestWalkFilesReportsSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "data.txt", "hello")

	var got int64
	err := WalkFiles(root, NewIgnore(), func(path, rel string, size int64) error {
		got = size
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected size 5, got %d", got)
	}
}
