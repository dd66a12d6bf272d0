package player

import "time"

// Capability is the external audio decode/output service the session drives.
// Implementations own the platform side of playback; the session owns the
// sequencing. A capability holds at most one open stream at a time.
type Capability interface {
	// Open loads the file at path, replacing any previously open stream.
	// The stream starts paused at position zero.
	Open(path string) error

	// Start begins or resumes output of the open stream.
	Start()

	// Stop halts output. Position need not be preserved; the session
	// reopens the stream on the next play.
	Stop()

	// Close releases the open stream, if any.
	Close()

	// Position returns the current position of the open stream.
	Position() time.Duration

	// SetPosition moves the open stream to the given position.
	SetPosition(d time.Duration) error

	// Duration returns the total length of the open stream.
	Duration() time.Duration

	// SetMuted silences or restores output without touching position.
	SetMuted(muted bool)
}
