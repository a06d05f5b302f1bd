package lica

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lica/internal/testutil"
)

func TestUnpackerMode(t *testing.T) {
	t.Parallel()

	streaming := NewUnpacker(Capabilities{StreamingJSON: true})
	assert.Equal(t, ModeStream, streaming.Mode(true))
	assert.Equal(t, ModeBulk, streaming.Mode(false))

	bulkOnly := NewUnpacker(Capabilities{})
	assert.Equal(t, ModeBulk, bulkOnly.Mode(true))
	assert.Equal(t, ModeBulk, bulkOnly.Mode(false))
	assert.False(t, bulkOnly.Capabilities().StreamingJSON)

	assert.True(t, DetectCapabilities().StreamingJSON)
}

func TestUnpackerFallsBackToBulk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "in.lica", `{"a/b.txt":"Yg=="}`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	u := NewUnpacker(Capabilities{StreamingJSON: false}, UnpackWithLogger(logger))

	res, err := u.Unpack(context.Background(), src, filepath.Join(dir, "out"), true)
	require.NoError(t, err)
	assert.Equal(t, ModeBulk, res.Mode)
	assert.Equal(t, 1, res.Files)
	assert.Contains(t, logs.String(), "falling back to bulk mode")
}

func TestUnpackerStream(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "in.lica", `{"a.txt":"YQ=="}`)

	u := NewUnpacker(DetectCapabilities())
	res, err := u.Unpack(context.Background(), src, filepath.Join(dir, "out"), true)
	require.NoError(t, err)
	assert.Equal(t, ModeStream, res.Mode)

	res, err = u.Unpack(context.Background(), src, filepath.Join(dir, "out2"), false)
	require.NoError(t, err)
	assert.Equal(t, ModeBulk, res.Mode)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	large := bytes.Repeat([]byte("0123456789abcdef"), 20_000)
	members := []testutil.Member{
		testutil.Dir("site/"),
		testutil.File("site/index.html", "<html>&amp;</html>"),
		testutil.Dir("site/assets/"),
		{Name: "site/assets/blob.bin", Content: large},
		{Name: "site/assets/empty.txt", Content: nil, Store: true},
		testutil.File("README", "read me"),
		testutil.File("deep/er/and/deeper/x.txt", "x"),
		testutil.File("名前.txt", "unicode"),
	}
	want := map[string]string{}
	for _, m := range members {
		if m.Name[len(m.Name)-1] != '/' {
			want[m.Name] = string(m.Content)
		}
	}

	dir := t.TempDir()
	archivePath := testutil.WriteZip(t, dir, members...)
	containerPath := filepath.Join(dir, "site.lica")

	packed, err := Pack(context.Background(), archivePath, containerPath)
	require.NoError(t, err)
	require.Equal(t, len(want), packed.Files)

	trees := map[Mode]map[string]string{}
	for _, m := range unpackModes {
		out := filepath.Join(dir, "out-"+m.name)
		res, err := m.fn(context.Background(), containerPath, out)
		require.NoError(t, err, m.name)
		assert.Equal(t, len(want), res.Files, m.name)
		assert.Empty(t, res.Failed, m.name)
		trees[m.mode] = testutil.ReadTree(t, out)
	}
	assert.Equal(t, want, trees[ModeBulk])
	assert.Equal(t, trees[ModeBulk], trees[ModeStream])
}

func TestRoundTripDirectoryOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := testutil.WriteZip(t, dir, testutil.Dir("empty/"))
	containerPath := filepath.Join(dir, "c.lica")

	res, err := Pack(context.Background(), archivePath, containerPath)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Files)

	data, err := os.ReadFile(containerPath)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	out := filepath.Join(dir, "out")
	un, err := UnpackStream(context.Background(), containerPath, out)
	require.NoError(t, err)
	assert.Equal(t, 0, un.Files)
	assert.Empty(t, testutil.ReadTree(t, out))
}
