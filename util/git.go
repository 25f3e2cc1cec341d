package util

import (
	"os"
	"path/filepath"
)

// FindGitRoot walks up from the current directory looking for a .git
// entry, the same heuristic cmd/naviscope/main.go's resolveProjectRoot
// uses to pick a default project
// root when none is given on the command line: a repo checkout's git
// root is almost always the module root the Discovery Pipeline should
// walk. Returns the current directory if .git is never found, so
// callers always get a usable path back rather than an error.
func FindGitRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without finding .git.
			cwd, _ := os.Getwd()
			return cwd, nil
		}
		dir = parent
	}
}
