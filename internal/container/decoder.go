package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Pair is one container entry.
type Pair struct {
	Key   string
	Value string
}

// Decode returns the base64-decoded value of the pair.
func (p Pair) Decode() ([]byte, error) {
	return Encoding.DecodeString(p.Value)
}

// SyntaxError reports a structural problem with a container document.
type SyntaxError struct {
	// Offset is the input byte offset at which the problem was detected.
	Offset int64
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("container: %s at offset %d: %v", e.Msg, e.Offset, e.Err)
	}
	return fmt.Sprintf("container: %s at offset %d", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

type decodeState uint8

const (
	stateStart decodeState = iota
	stateObject
	stateDone
)

// Decoder reads container pairs from a stream one at a time.
//
// Only the current pair is held in memory; the document as a whole is never
// materialized, so the number of entries is bounded by the stream alone.
type Decoder struct {
	dec   *json.Decoder
	state decodeState
	err   error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next pair in document order. It returns io.EOF once the
// closing delimiter has been consumed and no trailing data follows. Any other
// error is a *SyntaxError and is sticky.
func (d *Decoder) Next() (Pair, error) {
	if d.err != nil {
		return Pair{}, d.err
	}
	p, err := d.next()
	if err != nil {
		d.err = err
	}
	return p, err
}

func (d *Decoder) next() (Pair, error) {
	switch d.state {
	case stateDone:
		return Pair{}, io.EOF
	case stateStart:
		tok, err := d.dec.Token()
		if err != nil {
			return Pair{}, d.syntax("reading document root", truncated(err))
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return Pair{}, d.syntax("document root is not an object", nil)
		}
		d.state = stateObject
	}

	if !d.dec.More() {
		return Pair{}, d.finish()
	}

	tok, err := d.dec.Token()
	if err != nil {
		return Pair{}, d.syntax("reading key", truncated(err))
	}
	key, ok := tok.(string)
	if !ok {
		return Pair{}, d.syntax("object key is not a string", nil)
	}

	tok, err = d.dec.Token()
	if err != nil {
		return Pair{}, d.syntax(fmt.Sprintf("reading value of %q", key), truncated(err))
	}
	switch v := tok.(type) {
	case string:
		return Pair{Key: key, Value: v}, nil
	case json.Delim:
		return Pair{}, d.syntax(fmt.Sprintf("nested value for %q", key), nil)
	default:
		return Pair{}, d.syntax(fmt.Sprintf("non-string value for %q", key), nil)
	}
}

// finish consumes the closing delimiter and verifies nothing follows it.
func (d *Decoder) finish() error {
	tok, err := d.dec.Token()
	if err != nil {
		return d.syntax("reading end of object", truncated(err))
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '}' {
		return d.syntax("expected end of object", nil)
	}
	if _, err := d.dec.Token(); !errors.Is(err, io.EOF) {
		return d.syntax("trailing data after object", err)
	}
	d.state = stateDone
	return io.EOF
}

func (d *Decoder) syntax(msg string, err error) error {
	return &SyntaxError{Offset: d.dec.InputOffset(), Msg: msg, Err: err}
}

// truncated maps a bare EOF inside the document to io.ErrUnexpectedEOF.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadAll parses a complete container document held in memory and returns
// its pairs sorted by key. Duplicate keys resolve to the last value. A null
// value is a *SyntaxError, as it is for the Decoder.
func ReadAll(r io.Reader) ([]Pair, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var m map[string]*string
	if err := json.Unmarshal(data, &m); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return nil, &SyntaxError{Offset: se.Offset, Msg: "invalid document", Err: err}
		}
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, &SyntaxError{Offset: te.Offset, Msg: "document is not a flat string object", Err: err}
		}
		return nil, &SyntaxError{Msg: "invalid document", Err: err}
	}
	if m == nil {
		return nil, &SyntaxError{Msg: "document root is not an object"}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if v == nil {
			return nil, &SyntaxError{Msg: fmt.Sprintf("non-string value for %q", k)}
		}
		pairs = append(pairs, Pair{Key: k, Value: *v})
	}
	return pairs, nil
}
