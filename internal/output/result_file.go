package output

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mxngel/SubHound/internal/metrics"
)

// DefaultBufferSize is the write buffer in front of the results file.
const DefaultBufferSize = 32 * 1024

// ErrSinkClosed is returned when writing to a closed ResultFile.
var ErrSinkClosed = errors.New("result file closed")

// ResultFile is a buffered, line-oriented results file. It is created (or
// truncated) by Create and must always be closed; Close flushes whatever is
// still buffered.
type ResultFile struct {
	path string

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	closed bool

	bytesWritten atomic.Int64
	linesWritten atomic.Int64
}

// Create opens path for writing, truncating any previous content. Missing
// parent directories are created.
func Create(path string) (*ResultFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			metrics.GetMetrics().RecordOutputError("mkdir")
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		metrics.GetMetrics().RecordOutputError("create")
		return nil, fmt.Errorf("failed to open results file %s: %w", path, err)
	}

	return &ResultFile{
		path: path,
		file: f,
		buf:  bufio.NewWriterSize(f, DefaultBufferSize),
	}, nil
}

// Path returns the file path given to Create.
func (r *ResultFile) Path() string { return r.path }

// WriteLine appends line followed by a newline.
func (r *ResultFile) WriteLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSinkClosed
	}

	n, err := r.buf.WriteString(line)
	if err == nil {
		err = r.buf.WriteByte('\n')
		if err == nil {
			n++
		}
	}
	r.bytesWritten.Add(int64(n))
	if err != nil {
		metrics.GetMetrics().RecordOutputError("write")
		return fmt.Errorf("failed to write to %s: %w", r.path, err)
	}
	r.linesWritten.Add(1)
	metrics.GetMetrics().RecordOutputWrite(n)
	return nil
}

// Flush pushes buffered lines to the file.
func (r *ResultFile) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSinkClosed
	}
	if err := r.buf.Flush(); err != nil {
		metrics.GetMetrics().RecordOutputError("flush")
		return fmt.Errorf("failed to flush %s: %w", r.path, err)
	}
	return nil
}

// Close flushes and closes the file. The file is closed even when the flush
// fails. Closing twice is a no-op.
func (r *ResultFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	flushErr := r.buf.Flush()
	closeErr := r.file.Close()
	if flushErr != nil {
		metrics.GetMetrics().RecordOutputError("flush")
		return fmt.Errorf("failed to flush %s: %w", r.path, flushErr)
	}
	if closeErr != nil {
		metrics.GetMetrics().RecordOutputError("close")
		return fmt.Errorf("failed to close %s: %w", r.path, closeErr)
	}
	return nil
}

// BytesWritten reports the bytes accepted by WriteLine so far.
func (r *ResultFile) BytesWritten() int64 { return r.bytesWritten.Load() }

// LinesWritten reports the lines accepted by WriteLine so far.
func (r *ResultFile) LinesWritten() int64 { return r.linesWritten.Load() }
