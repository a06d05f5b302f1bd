// Package ioutil provides the byte counters used by the pack path.
package ioutil

import (
	"errors"
	"io"
	"math/bits"
)

// ErrOverflow is returned once a count no longer fits in a uint64.
var ErrOverflow = errors.New("byte count overflows uint64")

// Writer counts the bytes an underlying writer accepts.
type Writer struct {
	w io.Writer
	n uint64
}

// NewWriter returns a Writer that forwards to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (c *Writer) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if addErr := add(&c.n, n); addErr != nil && err == nil {
		err = addErr
	}
	return n, err
}

// Count returns the number of bytes written so far.
func (c *Writer) Count() uint64 {
	return c.n
}

// Reader counts the bytes read from an underlying reader.
type Reader struct {
	r io.Reader
	n uint64
}

// NewReader returns a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (c *Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if addErr := add(&c.n, n); addErr != nil && err == nil {
		err = addErr
	}
	return n, err
}

// Count returns the number of bytes read so far.
func (c *Reader) Count() uint64 {
	return c.n
}

// add increments *total by n, leaving it unchanged on overflow.
func add(total *uint64, n int) error {
	if n <= 0 {
		return nil
	}
	sum, carry := bits.Add64(*total, uint64(n), 0)
	if carry != 0 {
		return ErrOverflow
	}
	*total = sum
	return nil
}
