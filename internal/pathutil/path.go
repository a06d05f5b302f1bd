// Package pathutil validates slash-separated container keys and maps them
// onto the local filesystem.
package pathutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// Errors describing why a key can not be used as a relative path.
var (
	ErrEmpty         = errors.New("empty path")
	ErrTrailingSlash = errors.New("path ends with a separator")
	ErrAbsolute      = errors.New("path is absolute")
	ErrInvalidChar   = errors.New("path contains a backslash or NUL")
	ErrNotLocal      = errors.New("path escapes the output root")
)

// Validate reports whether key names a file strictly below the output root.
//
// Accepted keys are non-empty, slash-separated, and made only of non-empty
// elements other than "." and "..". Backslashes and NUL bytes are rejected
// so that a key means the same thing on every platform.
func Validate(key string) error {
	switch {
	case key == "":
		return ErrEmpty
	case strings.HasSuffix(key, "/"):
		return ErrTrailingSlash
	case strings.HasPrefix(key, "/"):
		return ErrAbsolute
	case strings.ContainsAny(key, "\\\x00"):
		return ErrInvalidChar
	}
	if key == "." || !fs.ValidPath(key) || !filepath.IsLocal(filepath.FromSlash(key)) {
		return ErrNotLocal
	}
	return nil
}

// ToFS converts a validated key to a relative path in the platform's
// separator convention.
func ToFS(key string) string {
	return filepath.FromSlash(key)
}
