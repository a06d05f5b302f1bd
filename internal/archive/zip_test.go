package archive

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lica/internal/testutil"
)

func TestReaderMembers(t *testing.T) {
	t.Parallel()

	data := testutil.ZipBytes(t,
		testutil.Dir("docs/"),
		testutil.File("docs/readme.md", "# hi"),
		testutil.File("b.txt", "bee"),
		testutil.Member{Name: "stored.bin", Content: []byte{0, 1, 2}, Store: true},
	)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer r.Close()

	members := r.Members()
	require.Len(t, members, 4)

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"docs/", "docs/readme.md", "b.txt", "stored.bin"}, names)
	assert.True(t, members[0].Dir)
	assert.False(t, members[1].Dir)
	assert.Equal(t, uint64(4), members[1].Size)

	rc, err := members[3].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte{0, 1, 2}, content)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := testutil.WriteZip(t, t.TempDir(), testutil.File("a.txt", "a"))
	r, err := Open(path)
	require.NoError(t, err)
	require.Len(t, r.Members(), 1)
	require.NoError(t, r.Close())
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.zip"))
	require.Error(t, err)

	notZip := testutil.WriteFile(t, dir, "plain.txt", "this is not a zip archive")
	_, err = Open(notZip)
	require.Error(t, err)
}

func TestMemberWithoutFile(t *testing.T) {
	t.Parallel()

	_, err := Member{Name: "x"}.Open()
	assert.Error(t, err)
}
