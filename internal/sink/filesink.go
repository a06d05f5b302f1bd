// Package sink writes decoded container entries below an output root.
package sink

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/lica/internal/pathutil"
)

// ErrUnsafePath is returned when a key does not name a file strictly below
// the output root.
var ErrUnsafePath = errors.New("lica: unsafe path")

const (
	// DefaultFileMode is the permission applied to written files.
	DefaultFileMode os.FileMode = 0o644

	// DefaultDirMode is the permission used for created directories.
	DefaultDirMode os.FileMode = 0o755
)

// Committer is a writer that can be committed or discarded.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content visible at its path.
	Commit() error

	// Discard aborts the write and removes anything staged so far.
	Discard() error
}

// FileSink writes entries to the filesystem.
//
// By default, files are written to a temporary file in the destination
// directory and renamed to the final path on Commit, so that a failed entry
// never leaves partial content at its path. Existing files are overwritten.
// All access goes through an os.Root, which refuses to follow paths or
// symlinks out of the output root.
type FileSink struct {
	destDir     string
	root        *os.Root
	directWrite bool
	fileMode    os.FileMode
	dirMode     os.FileMode
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithDirectWrites disables temp files and writes directly to the final path.
func WithDirectWrites(enabled bool) Option {
	return func(s *FileSink) {
		s.directWrite = enabled
	}
}

// WithFileMode sets the permission bits of written files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FileSink) {
		s.fileMode = mode.Perm()
	}
}

// WithDirMode sets the permission bits of created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(s *FileSink) {
		s.dirMode = mode.Perm()
	}
}

// Open creates destDir and any missing ancestors, and returns a FileSink
// rooted there. The caller must Close it.
func Open(destDir string, opts ...Option) (*FileSink, error) {
	s := &FileSink{
		destDir:  destDir,
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(destDir, s.dirMode); err != nil {
		return nil, fmt.Errorf("create output root %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("open output root %s: %w", destDir, err)
	}
	s.root = root
	return s, nil
}

// Dir returns the output root.
func (s *FileSink) Dir() string {
	return s.destDir
}

// Close releases the output root.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// Path returns the filesystem path key maps to below the output root.
// It does not validate key.
func (s *FileSink) Path(key string) string {
	return filepath.Join(s.destDir, pathutil.ToFS(key))
}

// Put writes content to the file named by key, creating parent directories.
func (s *FileSink) Put(key string, content []byte) error {
	c, err := s.Writer(key)
	if err != nil {
		return err
	}
	if _, err := c.Write(content); err != nil {
		_ = c.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write %s: %w", s.Path(key), err)
	}
	return c.Commit()
}

// Writer returns a Committer for the file named by key.
func (s *FileSink) Writer(key string) (Committer, error) {
	if err := pathutil.Validate(key); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnsafePath, key, err)
	}
	destRel := pathutil.ToFS(key)
	destPath := s.Path(key)

	if dir := filepath.Dir(destRel); dir != "." {
		if err := s.root.MkdirAll(dir, s.dirMode); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", filepath.Join(s.destDir, dir), err)
		}
	}

	if s.directWrite {
		file, err := s.root.OpenFile(destRel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, s.fileMode)
		if err != nil {
			return nil, fmt.Errorf("create file %s: %w", destPath, err)
		}
		return &directCommitter{destPath: destPath, destRel: destRel, file: file, sink: s}, nil
	}

	tempFile, tempRel, err := createTempFile(s.root, filepath.Dir(destRel), ".lica-")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", destPath, err)
	}
	return &fileCommitter{
		destPath: destPath,
		destRel:  destRel,
		tempFile: tempFile,
		tempRel:  tempRel,
		sink:     s,
	}, nil
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	destPath string
	destRel  string
	tempFile *os.File
	tempRel  string
	sink     *FileSink
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.tempFile.Write(p)
}

// Commit closes the temp file, applies the file mode, and renames it over
// the final path.
func (c *fileCommitter) Commit() error {
	root := c.sink.root
	if err := c.tempFile.Close(); err != nil {
		_ = root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := root.Chmod(c.tempRel, c.sink.fileMode); err != nil {
		_ = root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("chmod: %w", err)
	}
	if err := root.Rename(c.tempRel, c.destRel); err != nil {
		_ = root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", c.destPath, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	_ = c.tempFile.Close() //nolint:errcheck // we're cleaning up
	return c.sink.root.Remove(c.tempRel)
}

// directCommitter writes directly to the final path.
type directCommitter struct {
	destPath string
	destRel  string
	file     *os.File
	sink     *FileSink
}

// Write implements io.Writer.
func (c *directCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

// Commit closes the file.
func (c *directCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.sink.root.Remove(c.destRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close file %s: %w", c.destPath, err)
	}
	return nil
}

// Discard closes and removes the file.
func (c *directCommitter) Discard() error {
	_ = c.file.Close() //nolint:errcheck // best-effort cleanup
	return c.sink.root.Remove(c.destRel)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
