package lica

import (
	"log/slog"
	"os"
)

// reportConfig is shared by pack and unpack.
type reportConfig struct {
	logger   *slog.Logger
	progress ProgressFunc
	interval int
}

func (c *reportConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func (c *reportConfig) every() int {
	if c.interval == 0 {
		return DefaultProgressInterval
	}
	return c.interval
}

// report delivers a progress event and logs every interval files.
func (c *reportConfig) report(stage ProgressStage, path string, files int, bytes uint64) {
	if c.progress != nil {
		c.progress(ProgressEvent{Stage: stage, Path: path, FilesDone: files, BytesDone: bytes})
	}
	if n := c.every(); n > 0 && files%n == 0 {
		c.log().Info("progress", "stage", stage.String(), "files", files, "bytes", bytes)
	}
}

// packConfig holds configuration for packing.
type packConfig struct {
	reportConfig
}

// PackOption configures Pack and PackTo.
type PackOption func(*packConfig)

// PackWithLogger sets the logger. The default discards all output.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}

// PackWithProgress sets a callback invoked after each member is written.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(cfg *packConfig) {
		cfg.progress = fn
	}
}

// PackWithProgressInterval sets how many files pass between progress log
// lines. Zero uses DefaultProgressInterval. Negative disables them.
func PackWithProgressInterval(n int) PackOption {
	return func(cfg *packConfig) {
		cfg.interval = n
	}
}

// unpackConfig holds configuration for unpacking.
type unpackConfig struct {
	reportConfig
	directWrites bool
	fileMode     os.FileMode
	dirMode      os.FileMode
}

// UnpackOption configures the unpack functions and Unpacker.
type UnpackOption func(*unpackConfig)

// UnpackWithLogger sets the logger. The default discards all output.
func UnpackWithLogger(logger *slog.Logger) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.logger = logger
	}
}

// UnpackWithProgress sets a callback invoked after each file is written.
func UnpackWithProgress(fn ProgressFunc) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.progress = fn
	}
}

// UnpackWithProgressInterval sets how many files pass between progress log
// lines. Zero uses DefaultProgressInterval. Negative disables them.
func UnpackWithProgressInterval(n int) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.interval = n
	}
}

// UnpackWithDirectWrites writes each file in place instead of through a
// temporary file renamed on success. Direct writes use fewer syscalls but a
// failed write can leave a partial file behind.
func UnpackWithDirectWrites(enabled bool) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.directWrites = enabled
	}
}

// UnpackWithFileMode sets the permission bits of written files.
// Zero keeps the default of 0644.
func UnpackWithFileMode(mode os.FileMode) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.fileMode = mode
	}
}

// UnpackWithDirMode sets the permission bits of created directories.
// Zero keeps the default of 0755.
func UnpackWithDirMode(mode os.FileMode) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.dirMode = mode
	}
}
