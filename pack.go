package lica

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/lica/internal/archive"
	"github.com/meigma/lica/internal/container"
	"github.com/meigma/lica/internal/ioutil"
)

// PackResult summarizes a completed pack.
type PackResult struct {
	// Files is the number of file members written. Directories are not
	// counted.
	Files int

	// ContentBytes is the total size of the raw member payloads.
	ContentBytes uint64

	// Bytes is the size of the container written.
	Bytes uint64

	// Digest is the sha256 digest of the container written.
	Digest digest.Digest
}

// Pack converts the zip archive at archivePath into a container at
// outputPath, creating or truncating it.
//
// Members are visited in the archive's central directory order; each is
// read once and streamed through the base64 encoder into the output, so at
// most one member is in flight. Directory members are skipped.
//
// Pack does not recover from a failing member: the run aborts and the
// output file is left truncated. It is not removed.
func Pack(ctx context.Context, archivePath, outputPath string, opts ...PackOption) (*PackResult, error) {
	cfg := newPackConfig(opts)

	ar, err := archive.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: archive %s: %w", ErrOpen, archivePath, err)
	}
	defer ar.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: output %s: %w", ErrOpen, outputPath, err)
	}

	cfg.log().Info("packing archive", "archive", archivePath, "output", outputPath)
	res, err := pack(ctx, ar, out, &cfg)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: close %s: %w", ErrWrite, outputPath, closeErr)
	}
	if err != nil {
		return nil, err
	}
	cfg.log().Info("packed archive", "files", res.Files, "bytes", res.Bytes, "digest", res.Digest.String())
	return res, nil
}

// PackTo converts the zip archive read from r, which has the given size,
// into a container written to w.
func PackTo(ctx context.Context, r io.ReaderAt, size int64, w io.Writer, opts ...PackOption) (*PackResult, error) {
	cfg := newPackConfig(opts)

	ar, err := archive.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: archive: %w", ErrOpen, err)
	}
	defer ar.Close()

	return pack(ctx, ar, w, &cfg)
}

func newPackConfig(opts []PackOption) packConfig {
	cfg := packConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func pack(ctx context.Context, ar *archive.Reader, w io.Writer, cfg *packConfig) (*PackResult, error) {
	bw := bufio.NewWriterSize(outputWriter{w}, 64*1024)
	digester := digest.Canonical.Digester()
	counter := ioutil.NewWriter(io.MultiWriter(bw, digester.Hash()))
	cw := container.NewWriter(counter)

	if err := cw.Begin(); err != nil {
		return nil, err
	}

	res := &PackResult{}
	for _, m := range ar.Members() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.Dir {
			cfg.log().Debug("skipped directory", "path", m.Name)
			continue
		}

		n, err := packMember(cw, m)
		if err != nil {
			return nil, err
		}
		res.Files++
		res.ContentBytes += n
		cfg.report(StagePacking, m.Name, res.Files, res.ContentBytes)
	}

	if err := cw.Close(); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	res.Bytes = counter.Count()
	res.Digest = digester.Digest()
	return res, nil
}

func packMember(cw *container.Writer, m archive.Member) (uint64, error) {
	rc, err := m.Open()
	if err != nil {
		return 0, fmt.Errorf("read member %q: %w", m.Name, err)
	}
	defer rc.Close()

	n, err := cw.WriteEntry(m.Name, rc)
	if err != nil {
		return n, fmt.Errorf("pack member %q: %w", m.Name, err)
	}
	return n, nil
}

// outputWriter tags failures of the destination with ErrWrite so they can
// be told apart from member read failures.
type outputWriter struct {
	w io.Writer
}

func (o outputWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return n, err
}
