// SPDX-License-Identifier: MIT
// Package viewer ships the static page that charts a benchmark history.
package viewer

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// IndexFilename is the page written next to the data file.
const IndexFilename = "index.html"

//go:embed index.html
var defaultPage []byte

// DefaultPage returns the bundled viewer page. It loads data.js from the
// same directory.
func DefaultPage() []byte {
	out := make([]byte, len(defaultPage))
	copy(out, defaultPage)
	return out
}

// WriteIfAbsent writes the default page into dir unless an index.html is
// already there. It reports whether a file was written; existing pages are
// never overwritten.
func WriteIfAbsent(dir string) (string, bool, error) {
	path := filepath.Join(dir, IndexFilename)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, false, err
	}
	if err := os.WriteFile(path, defaultPage, 0o644); err != nil {
		return path, false, err
	}
	return path, true, nil
}
