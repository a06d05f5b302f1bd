package lica

import "context"

// Capabilities describes optional features available to an Unpacker.
// It is resolved once at startup and treated as immutable.
type Capabilities struct {
	// StreamingJSON enables ModeStream.
	StreamingJSON bool
}

// DetectCapabilities returns the capabilities of this build. The streaming
// decoder is always compiled in; callers may withdraw it through
// configuration before constructing an Unpacker.
func DetectCapabilities() Capabilities {
	return Capabilities{StreamingJSON: true}
}

// Unpacker unpacks containers using the mode its capabilities allow.
type Unpacker struct {
	caps Capabilities
	opts []UnpackOption
}

// NewUnpacker returns an Unpacker bound to caps. The options apply to every
// Unpack call.
func NewUnpacker(caps Capabilities, opts ...UnpackOption) *Unpacker {
	return &Unpacker{caps: caps, opts: opts}
}

// Capabilities returns the capabilities the Unpacker was built with.
func (u *Unpacker) Capabilities() Capabilities {
	return u.caps
}

// Mode returns the mode Unpack uses for the given stream preference:
// ModeStream when streaming is requested and available, ModeBulk otherwise.
func (u *Unpacker) Mode(stream bool) Mode {
	if stream && u.caps.StreamingJSON {
		return ModeStream
	}
	return ModeBulk
}

// Unpack writes the container at containerPath below outputRoot. When
// stream is set but streaming is unavailable it falls back to bulk mode.
func (u *Unpacker) Unpack(ctx context.Context, containerPath, outputRoot string, stream bool) (*UnpackResult, error) {
	mode := u.Mode(stream)
	if stream && mode != ModeStream {
		cfg := unpackConfig{}
		for _, opt := range u.opts {
			opt(&cfg)
		}
		cfg.log().Warn("streaming parser unavailable, falling back to bulk mode", "container", containerPath)
	}

	if mode == ModeStream {
		return UnpackStream(ctx, containerPath, outputRoot, u.opts...)
	}
	return UnpackBulk(ctx, containerPath, outputRoot, u.opts...)
}
