// Package testutil builds zip fixtures and inspects output trees for tests.
package testutil

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// Member describes one entry of a fixture archive. A Name ending in "/"
// produces a directory entry and Content is ignored.
type Member struct {
	Name    string
	Content []byte
	Store   bool
}

// File returns a compressed file member.
func File(name, content string) Member {
	return Member{Name: name, Content: []byte(content)}
}

// Dir returns a directory member.
func Dir(name string) Member {
	return Member{Name: name}
}

// ZipBytes encodes members, in order, as a zip archive.
func ZipBytes(t testing.TB, members ...Member) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		method := zip.Deflate
		if m.Store || isDirName(m.Name) {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: m.Name, Method: method})
		require.NoError(t, err)
		if !isDirName(m.Name) {
			_, err = w.Write(m.Content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteZip writes a zip archive of members into dir and returns its path.
func WriteZip(t testing.TB, dir string, members ...Member) string {
	t.Helper()

	path := filepath.Join(dir, "input.zip")
	require.NoError(t, os.WriteFile(path, ZipBytes(t, members...), 0o600))
	return path
}

// ReadTree returns every regular file below root keyed by its
// slash-separated relative path.
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()

	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	require.NoError(t, err)
	return files
}

// WriteFile writes content to a new file in dir and returns its path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func isDirName(name string) bool {
	return len(name) > 0 && name[len(name)-1] == '/'
}
