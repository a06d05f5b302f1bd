// Package archive reads zip archives member by member for the packer.
package archive

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Member is one entry of an archive in its native enumeration order.
type Member struct {
	// Name is the member path exactly as stored in the archive.
	Name string

	// Dir reports whether the member is a directory entry.
	Dir bool

	// Size is the uncompressed size recorded in the central directory.
	Size uint64

	file *zip.File
}

// Open returns a reader over the member's uncompressed bytes.
// The payload is decompressed and CRC-checked as it is read.
func (m Member) Open() (io.ReadCloser, error) {
	if m.file == nil {
		return nil, fmt.Errorf("open member %q: no backing file", m.Name)
	}
	rc, err := m.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %q: %w", m.Name, err)
	}
	return rc, nil
}

// Reader lists and opens the members of a zip archive.
type Reader struct {
	zr      *zip.Reader
	closer  io.Closer
	members []Member
}

// Open opens the zip archive at path.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return newReader(&rc.Reader, rc), nil
}

// NewReader reads a zip archive from r, which has the given size.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return newReader(zr, nil), nil
}

func newReader(zr *zip.Reader, closer io.Closer) *Reader {
	members := make([]Member, 0, len(zr.File))
	for _, f := range zr.File {
		members = append(members, Member{
			Name: f.Name,
			Dir:  isDir(f),
			Size: f.UncompressedSize64,
			file: f,
		})
	}
	return &Reader{zr: zr, closer: closer, members: members}
}

// Members returns the archive members in central directory order.
func (r *Reader) Members() []Member {
	return r.members
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func isDir(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.Mode().IsDir()
}
