package lica

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lica/internal/testutil"
)

func packBytes(t *testing.T, opts []PackOption, members ...testutil.Member) (string, *PackResult) {
	t.Helper()
	data := testutil.ZipBytes(t, members...)
	var out bytes.Buffer
	res, err := PackTo(context.Background(), bytes.NewReader(data), int64(len(data)), &out, opts...)
	require.NoError(t, err)
	return out.String(), res
}

func TestPackHello(t *testing.T) {
	t.Parallel()

	doc, res := packBytes(t, nil, testutil.File("hello.txt", "hi"))
	assert.Equal(t, `{"hello.txt":"aGk="}`, doc)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, uint64(2), res.ContentBytes)
	assert.Equal(t, uint64(len(doc)), res.Bytes)
	assert.Equal(t, digest.FromString(doc), res.Digest)
}

func TestPackEmptyArchive(t *testing.T) {
	t.Parallel()

	doc, res := packBytes(t, nil)
	assert.Equal(t, "{}", doc)
	assert.Equal(t, 0, res.Files)
}

func TestPackSkipsDirectories(t *testing.T) {
	t.Parallel()

	doc, res := packBytes(t, nil, testutil.Dir("only/"))
	assert.Equal(t, "{}", doc)
	assert.Equal(t, 0, res.Files)

	doc, res = packBytes(t, nil,
		testutil.Dir("a/"),
		testutil.File("a/x.txt", "x"),
		testutil.Dir("a/b/"),
		testutil.File("a/b/y.txt", "y"),
	)
	assert.Equal(t, `{"a/x.txt":"eA==","a/b/y.txt":"eQ=="}`, doc)
	assert.Equal(t, 2, res.Files)
}

func TestPackPreservesOrderAndContent(t *testing.T) {
	t.Parallel()

	binary := make([]byte, 70_000)
	for i := range binary {
		binary[i] = byte(i * 7)
	}
	doc, _ := packBytes(t, nil,
		testutil.File("z.txt", "last letter first"),
		testutil.Member{Name: "m/data.bin", Content: binary},
		testutil.Member{Name: "a.txt", Content: []byte("stored"), Store: true},
		testutil.File("empty", ""),
	)
	require.True(t, json.Valid([]byte(doc)))

	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	want := map[string][]byte{
		"z.txt":      []byte("last letter first"),
		"m/data.bin": binary,
		"a.txt":      []byte("stored"),
		"empty":      {},
	}
	require.Len(t, m, len(want))
	for k, v := range want {
		got, err := base64.StdEncoding.DecodeString(m[k])
		require.NoError(t, err)
		assert.Equal(t, v, got, k)
	}

	zi := bytes.Index([]byte(doc), []byte(`"z.txt"`))
	mi := bytes.Index([]byte(doc), []byte(`"m/data.bin"`))
	ai := bytes.Index([]byte(doc), []byte(`"a.txt"`))
	assert.True(t, zi < mi && mi < ai, "archive order must be preserved")
}

func TestPackEscapesNames(t *testing.T) {
	t.Parallel()

	doc, _ := packBytes(t, nil, testutil.File(`say "hi" ünïcode.txt`, "q"))
	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	assert.Contains(t, m, `say "hi" ünïcode.txt`)
}

func TestPackProgress(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	_, res := packBytes(t,
		[]PackOption{PackWithProgress(func(e ProgressEvent) { events = append(events, e) })},
		testutil.File("a", "1"),
		testutil.Dir("d/"),
		testutil.File("d/b", "22"),
	)
	require.Equal(t, 2, res.Files)
	require.Len(t, events, 2)
	assert.Equal(t, ProgressEvent{Stage: StagePacking, Path: "a", FilesDone: 1, BytesDone: 1}, events[0])
	assert.Equal(t, ProgressEvent{Stage: StagePacking, Path: "d/b", FilesDone: 2, BytesDone: 3}, events[1])
}

func TestPackFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := testutil.WriteZip(t, dir, testutil.File("hello.txt", "hi"))
	outPath := filepath.Join(dir, "out.lica")
	require.NoError(t, os.WriteFile(outPath, []byte("stale content that is longer"), 0o600))

	res, err := Pack(context.Background(), archivePath, outPath)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, `{"hello.txt":"aGk="}`, string(got))
}

func TestPackOpenErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Pack(context.Background(), filepath.Join(dir, "missing.zip"), filepath.Join(dir, "out.lica"))
	require.ErrorIs(t, err, ErrOpen)

	notZip := testutil.WriteFile(t, dir, "bad.zip", "definitely not a zip")
	_, err = Pack(context.Background(), notZip, filepath.Join(dir, "out.lica"))
	require.ErrorIs(t, err, ErrOpen)

	good := testutil.WriteZip(t, dir, testutil.File("a", "a"))
	_, err = Pack(context.Background(), good, filepath.Join(dir, "no", "such", "dir", "out.lica"))
	require.ErrorIs(t, err, ErrOpen)
}

func TestPackCorruptMemberAborts(t *testing.T) {
	t.Parallel()

	data := testutil.ZipBytes(t,
		testutil.Member{Name: "ok.txt", Content: []byte("fine"), Store: true},
		testutil.Member{Name: "bad.txt", Content: []byte("CORRUPTME"), Store: true},
	)
	i := bytes.Index(data, []byte("CORRUPTME"))
	require.Positive(t, i)
	data[i] = 'X'

	var out bytes.Buffer
	_, err := PackTo(context.Background(), bytes.NewReader(data), int64(len(data)), &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWrite)
	assert.Contains(t, err.Error(), "bad.txt")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPackWriteError(t *testing.T) {
	t.Parallel()

	data := testutil.ZipBytes(t, testutil.File("a", "a"))
	_, err := PackTo(context.Background(), bytes.NewReader(data), int64(len(data)), failWriter{})
	require.ErrorIs(t, err, ErrWrite)
}

func TestPackCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := testutil.ZipBytes(t, testutil.File("a", "a"))
	_, err := PackTo(ctx, bytes.NewReader(data), int64(len(data)), &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}
