package weave

import (
	"fmt"
	"os"
	"strings"
)

// OpenReader opens path for reading, choosing the gzip or plaintext
// LineStream implementation by its ".gz" suffix.
func OpenReader(path string) (LineStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weave: open %q: %w", path, err)
	}
	name := strippedName(path)
	if strings.HasSuffix(path, ".gz") {
		ls, err := NewGzipReader(name, f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return ls, nil
	}
	return NewPlainReader(name, f), nil
}

// CreateWriter creates (or truncates) path for writing, choosing the
// gzip or plaintext LineStream implementation by its ".gz" suffix.
func CreateWriter(path string) (LineStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("weave: create %q: %w", path, err)
	}
	name := strippedName(path)
	if strings.HasSuffix(path, ".gz") {
		ls, err := NewGzipWriter(name, f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return ls, nil
	}
	return NewPlainWriter(name, f), nil
}

func strippedName(path string) string {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	return strings.TrimSuffix(base, ".gz")
}
