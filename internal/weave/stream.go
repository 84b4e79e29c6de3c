// Package weave implements the line-stream storage backing the sure
// tree deltas: each delta of a line-oriented stream is kept in its own
// file (see DeltaPath), addressed by its integer delta number and
// optionally gzip-compressed.
package weave

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

// LineStream is the object-style handle spec §9 describes: a small
// interface with exactly the methods needed to write or read one
// delta's lines, implemented once for plaintext and once for gzip
// behind the same interface, selected at open time.
type LineStream interface {
	// WriteLines appends lines to the stream, each terminated by '\n'.
	WriteLines(lines []string) error
	// ReadLine returns the next line with its trailing newline
	// stripped, or io.EOF when the stream is exhausted. A missing
	// trailing newline at end of file is fatal, not silently accepted.
	ReadLine() (string, error)
	// Name returns the filename recorded for this stream, primarily
	// meaningful for the gzip variant's embedded header.
	Name() string
	Close() error
}

// ErrMissingTrailingNewline is returned by ReadLine when the
// underlying file ends mid-line.
var ErrMissingTrailingNewline = errors.New("weave: missing trailing newline at end of stream")

// plainLineStream is the uncompressed LineStream implementation.
type plainLineStream struct {
	name string
	w    io.Writer
	r    *bufio.Reader
	c    io.Closer
}

// NewPlainWriter opens w for appending plaintext lines.
func NewPlainWriter(name string, w io.WriteCloser) LineStream {
	return &plainLineStream{name: name, w: w, c: w}
}

// NewPlainReader opens r for reading plaintext lines.
func NewPlainReader(name string, r io.ReadCloser) LineStream {
	return &plainLineStream{name: name, r: bufio.NewReader(r), c: r}
}

func (s *plainLineStream) WriteLines(lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(s.w, line); err != nil {
			return fmt.Errorf("weave: write line: %w", err)
		}
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return fmt.Errorf("weave: write newline: %w", err)
		}
	}
	return nil
}

func (s *plainLineStream) ReadLine() (string, error) {
	return readLine(s.r)
}

func (s *plainLineStream) Name() string { return s.name }
func (s *plainLineStream) Close() error { return s.c.Close() }

// gzipLineStream is the compressed LineStream implementation. Per
// spec §6: window bits 31 (Go's gzip format always uses the gzip
// container, equivalent to raw deflate's window bits 15 plus the
// gzip-wrapper flag of 16), level 3, OS field 3 ("Unix").
type gzipLineStream struct {
	name string
	gw   *gzip.Writer
	gr   *gzip.Reader
	r    *bufio.Reader
	c    io.Closer
}

const gzipLevel = 3
const gzipOSUnix = 3

// NewGzipWriter opens w for appending gzip-compressed lines. The gzip
// header records name and OS=3 per spec.
func NewGzipWriter(name string, w io.WriteCloser) (LineStream, error) {
	gw, err := gzip.NewWriterLevel(w, gzipLevel)
	if err != nil {
		return nil, fmt.Errorf("weave: open gzip writer: %w", err)
	}
	gw.Name = name
	gw.OS = gzipOSUnix
	return &gzipLineStream{name: name, gw: gw, c: w}, nil
}

// NewGzipReader opens r for reading gzip-compressed lines.
func NewGzipReader(name string, r io.ReadCloser) (LineStream, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("weave: open gzip reader: %w", err)
	}
	return &gzipLineStream{name: name, gr: gr, r: bufio.NewReader(gr), c: r}, nil
}

func (s *gzipLineStream) WriteLines(lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(s.gw, line); err != nil {
			return fmt.Errorf("weave: write line: %w", err)
		}
		if _, err := io.WriteString(s.gw, "\n"); err != nil {
			return fmt.Errorf("weave: write newline: %w", err)
		}
	}
	return nil
}

func (s *gzipLineStream) ReadLine() (string, error) {
	return readLine(s.r)
}

func (s *gzipLineStream) Name() string { return s.name }

func (s *gzipLineStream) Close() error {
	if s.gw != nil {
		if err := s.gw.Close(); err != nil {
			return fmt.Errorf("weave: close gzip writer: %w", err)
		}
	}
	if s.gr != nil {
		if err := s.gr.Close(); err != nil {
			return fmt.Errorf("weave: close gzip reader: %w", err)
		}
	}
	return s.c.Close()
}

// readLine reads up to '\n', stripping it, and is shared by both the
// plain and gzip implementations since both ultimately read lines from
// a *bufio.Reader. A non-empty partial line with no trailing '\n' at
// EOF is ErrMissingTrailingNewline rather than a silently accepted
// final line.
func readLine(r *bufio.Reader) (string, error) {
	if r == nil {
		return "", io.EOF
	}
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line != "" {
				return "", ErrMissingTrailingNewline
			}
			return "", io.EOF
		}
		return "", fmt.Errorf("weave: read line: %w", err)
	}
	return line[:len(line)-1], nil
}
