package lica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meigma/lica/internal/container"
	"github.com/meigma/lica/internal/sink"
)

// Mode selects how a container is parsed.
type Mode uint8

const (
	// ModeBulk parses the whole container in memory before writing files.
	ModeBulk Mode = iota

	// ModeStream decodes one pair at a time from the container stream.
	ModeStream
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBulk:
		return "bulk"
	case ModeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// UnpackResult summarizes an unpack.
type UnpackResult struct {
	// Mode is the parse mode used.
	Mode Mode

	// Files is the number of files written.
	Files int

	// Bytes is the total size of the decoded payloads written.
	Bytes uint64

	// Failed lists entries that were skipped, in processing order.
	Failed []*EntryError
}

// Err joins the per-entry failures, or returns nil if there were none.
func (r *UnpackResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// UnpackBulk writes every entry of the container at containerPath below
// outputRoot, creating outputRoot and intermediate directories as needed.
//
// The container is read and parsed in full before any file is written, so
// a malformed container fails with ErrParse and writes nothing. Memory use
// grows with container size.
//
// Entries are processed in key order. An entry that fails to decode or
// write is recorded in the result and skipped. Existing files are
// overwritten. When a key repeats, its last value wins.
func UnpackBulk(ctx context.Context, containerPath, outputRoot string, opts ...UnpackOption) (*UnpackResult, error) {
	u, err := newUnpack(ModeBulk, outputRoot, opts)
	if err != nil {
		return nil, err
	}
	defer u.close()

	f, err := os.Open(containerPath)
	if err != nil {
		return u.res, fmt.Errorf("%w: container %s: %w", ErrOpen, containerPath, err)
	}
	defer f.Close()

	u.log().Info("unpacking container", "container", containerPath, "output", outputRoot, "mode", ModeBulk.String())
	pairs, err := container.ReadAll(f)
	if err != nil {
		return u.res, readError(containerPath, err)
	}

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return u.res, err
		}
		u.put(p)
	}
	u.done()
	return u.res, nil
}

// UnpackStream writes every entry of the container at containerPath below
// outputRoot, decoding one pair at a time. At most one entry's value and
// decoded payload are held in memory.
//
// Entries are processed in document order with the same per-entry rules as
// UnpackBulk. A structural error in the container fails the run with
// ErrParse; files written before the error was detected remain on disk and
// are counted in the returned result.
func UnpackStream(ctx context.Context, containerPath, outputRoot string, opts ...UnpackOption) (*UnpackResult, error) {
	u, err := newUnpack(ModeStream, outputRoot, opts)
	if err != nil {
		return nil, err
	}
	defer u.close()

	f, err := os.Open(containerPath)
	if err != nil {
		return u.res, fmt.Errorf("%w: container %s: %w", ErrOpen, containerPath, err)
	}
	defer f.Close()

	u.log().Info("unpacking container", "container", containerPath, "output", outputRoot, "mode", ModeStream.String())
	dec := container.NewDecoder(f)
	for {
		if err := ctx.Err(); err != nil {
			return u.res, err
		}
		p, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return u.res, readError(containerPath, err)
		}
		u.put(p)
	}
	u.done()
	return u.res, nil
}

func readError(path string, err error) error {
	var se *container.SyntaxError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return fmt.Errorf("%w: read container %s: %w", ErrOpen, path, err)
}

// unpack carries the per-run state shared by both modes.
type unpack struct {
	cfg  unpackConfig
	sink *sink.FileSink
	res  *UnpackResult
}

func newUnpack(mode Mode, outputRoot string, opts []UnpackOption) (*unpack, error) {
	cfg := unpackConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	sinkOpts := []sink.Option{sink.WithDirectWrites(cfg.directWrites)}
	if cfg.fileMode != 0 {
		sinkOpts = append(sinkOpts, sink.WithFileMode(cfg.fileMode))
	}
	if cfg.dirMode != 0 {
		sinkOpts = append(sinkOpts, sink.WithDirMode(cfg.dirMode))
	}
	s, err := sink.Open(outputRoot, sinkOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return &unpack{cfg: cfg, sink: s, res: &UnpackResult{Mode: mode}}, nil
}

func (u *unpack) log() *slog.Logger {
	return u.cfg.log()
}

// put decodes one pair and writes it. Failures are recorded, not returned.
func (u *unpack) put(p container.Pair) {
	content, err := p.Decode()
	if err != nil {
		u.fail(p.Key, fmt.Errorf("%w: %w", ErrDecode, err))
		return
	}
	if err := u.sink.Put(p.Key, content); err != nil {
		if !errors.Is(err, ErrUnsafePath) {
			err = fmt.Errorf("%w: %w", ErrWrite, err)
		}
		u.fail(p.Key, err)
		return
	}
	u.res.Files++
	u.res.Bytes += uint64(len(content))
	u.cfg.report(StageUnpacking, p.Key, u.res.Files, u.res.Bytes)
}

func (u *unpack) fail(key string, err error) {
	u.log().Warn("skipping entry", "key", key, "error", err)
	u.res.Failed = append(u.res.Failed, &EntryError{Key: key, Err: err})
}

func (u *unpack) done() {
	u.log().Info("unpacked container",
		"files", u.res.Files, "failed", len(u.res.Failed), "output", u.sink.Dir())
}

func (u *unpack) close() {
	if err := u.sink.Close(); err != nil {
		u.log().Debug("close output root", "error", err)
	}
}
