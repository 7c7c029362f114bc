package docsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Local reads PDFs from a single directory, without descending into subdirectories.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) List(ctx context.Context) ([]Entry, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir failed: %w", err)
	}

	var out []Entry
	for _, e := range entries {
		if !e.Type().IsRegular() || !isPDF(e.Name()) {
			continue
		}
		out = append(out, Entry{FileName: e.Name(), FilePath: filepath.Join(l.dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

func (l *Local) Open(ctx context.Context, e Entry) (io.ReadCloser, error) {
	f, err := os.Open(e.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open document failed: %w", err)
	}
	return f, nil
}
