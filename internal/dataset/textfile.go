package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/mmap"
)

// ErrNoInput is returned when a path or glob pattern matches no file.
var ErrNoInput = errors.New("no input files")

const readBufferSize = 64 * 1024

// Line is one line of a text source, without its line terminator.
type Line struct {
	Source string // file path
	Offset int64  // byte offset of the line within Source
	Text   string
}

// TextOptions controls how text files are read.
type TextOptions struct {
	// SkipHeader drops the first line of every file.
	SkipHeader bool
}

// TextFile returns a dataset of the lines of every file matching pattern
// (a path or a filepath.Glob pattern such as "data/20??.csv"). The pattern is
// resolved immediately; the files are memory-mapped and split into
// newline-aligned partitions only when the dataset is forced. Blank lines are
// skipped.
func TextFile(dc *Context, pattern string, opts TextOptions) (*Dataset[Line], error) {
	files, err := expand(pattern)
	if err != nil {
		return nil, err
	}
	return &Dataset[Line]{
		dc:   dc,
		name: pattern,
		open: func(_ context.Context) (plan[Line], error) {
			return openText(files, dc.partitions, opts)
		},
	}, nil
}

func expand(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoInput, pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		if fi.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, pattern)
	}
	return files, nil
}

type section struct {
	file string
	r    *mmap.ReaderAt
	off  int
	n    int
}

func openText(files []string, perFile int, opts TextOptions) (plan[Line], error) {
	var readers []*mmap.ReaderAt
	closeAll := func() error {
		errs := make([]error, 0, len(readers))
		for _, r := range readers {
			errs = append(errs, r.Close())
		}
		return errors.Join(errs...)
	}

	var sections []section
	for _, f := range files {
		r, err := mmap.Open(f)
		if err != nil {
			_ = closeAll()
			return plan[Line]{}, fmt.Errorf("mmap %s: %w", f, err)
		}
		readers = append(readers, r)
		for _, s := range splitSections(r, perFile) {
			sections = append(sections, section{file: f, r: r, off: s[0], n: s[1]})
		}
	}

	return plan[Line]{
		parts: len(sections),
		close: closeAll,
		scan: func(ctx context.Context, p int, emit func(Line) error) error {
			return scanSection(ctx, sections[p], opts, emit)
		},
	}, nil
}

type byteSource interface {
	Len() int
	At(i int) byte
}

// splitSections cuts data into roughly n {offset, length} spans, each ending
// right after a newline (or at the end of data).
func splitSections(data byteSource, n int) [][2]int {
	size := data.Len()
	if size == 0 {
		return nil
	}
	target := max(size/max(n, 1), 1)

	var spans [][2]int
	start := 0
	for start < size {
		end := min(start+target, size)
		for end < size && data.At(end-1) != '\n' {
			end++
		}
		spans = append(spans, [2]int{start, end - start})
		start = end
	}
	return spans
}

func scanSection(ctx context.Context, s section, opts TextOptions, emit func(Line) error) error {
	br := bufio.NewReaderSize(io.NewSectionReader(s.r, int64(s.off), int64(s.n)), readBufferSize)
	offset := int64(s.off)

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		text, err := br.ReadString('\n')
		if len(text) > 0 {
			start := offset
			offset += int64(len(text))

			line := strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
			header := opts.SkipHeader && start == 0
			if line != "" && !header {
				if emitErr := emit(Line{Source: s.file, Offset: start, Text: line}); emitErr != nil {
					return emitErr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", s.file, err)
		}
	}
}
