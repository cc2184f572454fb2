package feed

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

type feedFile struct {
	io.Reader
	closers []io.Closer
}

func (f *feedFile) Close() error {
	var firstErr error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open returns a buffered reader over a feed file, gunzipping *.gz files
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return &feedFile{Reader: bufio.NewReader(file), closers: []io.Closer{file}}, nil
	}

	gzReader, err := gzip.NewReader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}

	return &feedFile{Reader: gzReader, closers: []io.Closer{file, gzReader}}, nil
}
