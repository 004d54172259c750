package glyphcast

import "errors"

var (
	// ErrNotReady is returned by the sampler when the source has no frame
	// dimensions yet. The render loop treats it as a no-op tick.
	ErrNotReady = errors.New("source not ready")

	ErrAlreadyRecording = errors.New("capture already recording")
	ErrNotRecording     = errors.New("capture not recording")

	// ErrUnsupportedFormat is returned by CaptureSink.Start for formats no
	// recorder is registered for.
	ErrUnsupportedFormat = errors.New("unsupported capture format")

	ErrUnknownPalette      = errors.New("unknown palette")
	ErrUnknownCharacterSet = errors.New("unknown character set")
	ErrInvalidConfig       = errors.New("invalid render config")

	// ErrNoReadback is returned by surfaces that cannot produce pixels.
	ErrNoReadback = errors.New("surface does not support pixel read-back")

	ErrSourceUnavailable = errors.New("video source unavailable")
)
