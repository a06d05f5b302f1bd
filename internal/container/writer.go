// Package container implements the lica container codec: a single flat JSON
// object mapping slash-separated paths to base64-encoded file contents.
//
// The Writer emits the object incrementally, one pair at a time. The Decoder
// reads pairs back one at a time without materializing the object, and
// ReadAll parses a whole document in memory.
package container

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/lica/internal/ioutil"
)

// Encoding is the base64 alphabet used for container values.
var Encoding = base64.StdEncoding

var (
	errNotOpen = errors.New("container: object not opened")
	errClosed  = errors.New("container: object already closed")
)

// Writer writes a container object to an underlying stream.
//
// The output is valid JSON only after Close succeeds. A failed write leaves
// the Writer in a sticky error state; the partial output can not be repaired.
type Writer struct {
	w       io.Writer
	key     bytes.Buffer
	enc     *json.Encoder
	buf     []byte
	entries int
	opened  bool
	closed  bool
	err     error
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	cw := &Writer{
		w:   w,
		buf: make([]byte, 32*1024),
	}
	cw.enc = json.NewEncoder(&cw.key)
	cw.enc.SetEscapeHTML(false)
	return cw
}

// Begin writes the object-open delimiter.
func (cw *Writer) Begin() error {
	if cw.err != nil {
		return cw.err
	}
	if cw.opened {
		return errors.New("container: object already opened")
	}
	cw.opened = true
	return cw.write([]byte{'{'})
}

// WriteEntry appends one key/value pair, base64-encoding content as it is
// read. It returns the number of raw content bytes consumed.
func (cw *Writer) WriteEntry(key string, content io.Reader) (uint64, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	if !cw.opened {
		return 0, errNotOpen
	}
	if cw.closed {
		return 0, errClosed
	}

	quoted, err := cw.quote(key)
	if err != nil {
		return 0, err
	}
	if cw.entries > 0 {
		if err := cw.write([]byte{','}); err != nil {
			return 0, err
		}
	}
	if err := cw.write(quoted); err != nil {
		return 0, err
	}
	if err := cw.write([]byte(`:"`)); err != nil {
		return 0, err
	}

	// Base64 output never needs JSON escaping, so it goes out unquoted.
	cr := ioutil.NewReader(content)
	b64 := base64.NewEncoder(Encoding, errWriter{cw})
	if _, err := io.CopyBuffer(b64, cr, cw.buf); err != nil {
		return cr.Count(), cw.fail(fmt.Errorf("encode %q: %w", key, err))
	}
	if err := b64.Close(); err != nil {
		return cr.Count(), cw.fail(fmt.Errorf("encode %q: %w", key, err))
	}
	if err := cw.write([]byte{'"'}); err != nil {
		return cr.Count(), err
	}

	cw.entries++
	return cr.Count(), nil
}

// Close writes the object-close delimiter. It does not close the
// underlying writer.
func (cw *Writer) Close() error {
	if cw.err != nil {
		return cw.err
	}
	if !cw.opened {
		return errNotOpen
	}
	if cw.closed {
		return nil
	}
	cw.closed = true
	return cw.write([]byte{'}'})
}

// Entries returns the number of pairs written so far.
func (cw *Writer) Entries() int {
	return cw.entries
}

func (cw *Writer) quote(key string) ([]byte, error) {
	cw.key.Reset()
	if err := cw.enc.Encode(key); err != nil {
		return nil, fmt.Errorf("quote key %q: %w", key, err)
	}
	return bytes.TrimSuffix(cw.key.Bytes(), []byte{'\n'}), nil
}

func (cw *Writer) write(p []byte) error {
	if cw.err != nil {
		return cw.err
	}
	if _, err := cw.w.Write(p); err != nil {
		return cw.fail(err)
	}
	return nil
}

func (cw *Writer) fail(err error) error {
	if cw.err == nil {
		cw.err = err
	}
	return cw.err
}

// errWriter routes encoder output through the Writer's sticky error state.
type errWriter struct {
	cw *Writer
}

func (e errWriter) Write(p []byte) (int, error) {
	if err := e.cw.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
