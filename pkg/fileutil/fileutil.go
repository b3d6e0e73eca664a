// Package fileutil provides file system helpers for resolving local MIDI
// sources.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveLocalFile resolves a local file path, falling back to a
// case-insensitive search of the containing directory when the exact path
// does not exist. Useful for files exported on case-insensitive systems
// ("Pattern.MID" vs "pattern.mid").
func ResolveLocalFile(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := filepath.Dir(path)
	searchName := strings.ToLower(filepath.Base(path))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == searchName {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("file not found: %s", path)
}

// IsMIDIPath reports whether the path has a MIDI file extension.
func IsMIDIPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		return true
	}
	return false
}
