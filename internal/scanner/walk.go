package scanner

import (
	"io/fs"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnoreRules excludes VCS metadata, dependency trees, and build
// output from every file walk.
var defaultIgnoreRules = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"__pycache__/",
	".venv/",
	"venv/",
	"*.min.js",
	"*.lock",
}

// NewIgnore compiles the default ignore rules plus any user-supplied globs.
func NewIgnore(extra ...string) *gitignore.GitIgnore {
	rules := append(append([]string{}, defaultIgnoreRules...), extra...)
	return gitignore.CompileIgnoreLines(rules...)
}

// WalkFiles visits every regular file under root that the ignore rules keep,
// calling fn with the absolute path, the root-relative path (slash-separated),
// and the file size. Walk errors on individual entries are skipped so one
// unreadable file cannot sink a scan.
func WalkFiles(root string, ignore *gitignore.GitIgnore, fn func(path, rel string, size int64) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		return fn(path, rel, info.Size())
	})
}
