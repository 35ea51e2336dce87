package mine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/astmerge/findmerges/merges"
)

// Header is the header row of an output file. With base columns on,
// "base_commit" is appended.
var Header = []string{"idx", "branch_name", "merge_commit", "parent_1", "parent_2", "notes"}

// OutputPath returns where the results for s are written under dir.
func OutputPath(dir string, s Slug) string {
	return filepath.Join(dir, s.Org, s.Repo+".csv")
}

// Exists reports whether path exists. A repository with an output file
// has already been mined.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// A RowWriter writes records as CSV rows under a header row.
type RowWriter struct {
	w        *csv.Writer
	withBase bool
	rows     int
}

// NewRowWriter writes the header row to w and returns a RowWriter for
// the records. withBase adds the base_commit column.
func NewRowWriter(w io.Writer, withBase bool) (*RowWriter, error) {
	rw := &RowWriter{w: csv.NewWriter(w), withBase: withBase}
	header := Header
	if withBase {
		header = append(append([]string{}, Header...), "base_commit")
	}
	if err := rw.w.Write(header); err != nil {
		return nil, err
	}
	return rw, nil
}

// Write appends one row.
func (rw *RowWriter) Write(r merges.Record) error {
	row := []string{
		strconv.Itoa(r.Index),
		r.Branch,
		string(r.Merge),
		string(r.Parent1),
		string(r.Parent2),
		string(r.Note),
	}
	if rw.withBase {
		row = append(row, string(r.Base))
	}
	if err := rw.w.Write(row); err != nil {
		return err
	}
	rw.rows++
	return nil
}

// Rows returns the number of records written.
func (rw *RowWriter) Rows() int { return rw.rows }

// Flush writes any buffered rows.
func (rw *RowWriter) Flush() error {
	rw.w.Flush()
	return rw.w.Error()
}

// An Output writes records to a temporary file that becomes the output
// file only on Commit.
type Output struct {
	*RowWriter
	path string
	tmp  *os.File
}

// CreateOutput creates the parent directory of path and a temporary
// file beside it, and writes the header row.
func CreateOutput(path string, withBase bool) (*Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	tmp, err := os.Create(path + ".tmp")
	if err != nil {
		return nil, err
	}
	o := &Output{path: path, tmp: tmp}
	if o.RowWriter, err = NewRowWriter(tmp, withBase); err != nil {
		o.Abort()
		return nil, err
	}
	return o, nil
}

// Commit flushes the rows and renames the temporary file to the output
// path.
func (o *Output) Commit() error {
	if err := o.Flush(); err != nil {
		o.Abort()
		return fmt.Errorf("writing %s: %w", o.tmp.Name(), err)
	}
	if err := o.tmp.Close(); err != nil {
		os.Remove(o.tmp.Name())
		return err
	}
	return os.Rename(o.tmp.Name(), o.path)
}

// Abort removes the temporary file. It is a no-op after Commit.
func (o *Output) Abort() {
	o.tmp.Close()
	os.Remove(o.tmp.Name())
}

// WriteHeaderOnly creates an output file containing only the header
// row, which marks the repository as done without any merges.
func WriteHeaderOnly(path string, withBase bool) error {
	o, err := CreateOutput(path, withBase)
	if err != nil {
		return err
	}
	return o.Commit()
}
