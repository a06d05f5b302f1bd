package lica

import (
	"errors"
	"fmt"

	"github.com/meigma/lica/internal/sink"
)

var (
	// ErrOpen is returned when an archive, container, or output file can not
	// be opened.
	ErrOpen = errors.New("lica: open")

	// ErrParse is returned when a container is not a single well-formed flat
	// JSON object of string values.
	ErrParse = errors.New("lica: malformed container")

	// ErrDecode is returned for an entry whose value is not valid base64.
	ErrDecode = errors.New("lica: invalid base64")

	// ErrWrite is returned when output can not be written.
	ErrWrite = errors.New("lica: write")

	// ErrUnsafePath is returned for an entry whose key does not name a file
	// strictly below the output root.
	ErrUnsafePath = sink.ErrUnsafePath
)

// EntryError records the failure of a single container entry.
type EntryError struct {
	Key string
	Err error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %q: %v", e.Key, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
