package lica

// ProgressEvent represents a progress update during pack or unpack.
type ProgressEvent struct {
	// Stage identifies the operation.
	Stage ProgressStage

	// Path is the entry just processed.
	Path string

	// FilesDone is the number of files written so far.
	FilesDone int

	// BytesDone is the number of raw file bytes processed so far.
	BytesDone uint64
}

// ProgressStage identifies the operation reporting progress.
type ProgressStage uint8

const (
	// StagePacking indicates archive members are being encoded.
	StagePacking ProgressStage = iota

	// StageUnpacking indicates container entries are being written to disk.
	StageUnpacking
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StagePacking:
		return "packing"
	case StageUnpacking:
		return "unpacking"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. It is called synchronously after
// every file.
type ProgressFunc func(ProgressEvent)

// DefaultProgressInterval is the number of files between progress log lines.
const DefaultProgressInterval = 100
