package player

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned when a file's extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported media format")

// BeepCapability implements Capability on top of beep's speaker. The speaker
// is initialized once at a fixed output rate; every stream is resampled to it.
type BeepCapability struct {
	mu sync.Mutex

	initialized bool
	sampleRate  beep.SampleRate

	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	muted bool

	// set from the speaker's own goroutine, so it must not share c.mu
	drained atomic.Bool
}

// NewBeepCapability creates an audio capability backed by beep.
func NewBeepCapability() *BeepCapability {
	return &BeepCapability{
		sampleRate: beep.SampleRate(44100),
	}
}

// Open decodes the file at path and queues it on the speaker, paused at
// position zero.
func (c *BeepCapability) Open(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()

	file, err := os.Open(path)
	if err != nil {
		return err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(file)
	case ".wav":
		streamer, format, err = wav.Decode(file)
	case ".flac":
		streamer, format, err = flac.Decode(file)
	case ".ogg":
		streamer, format, err = vorbis.Decode(file)
	default:
		file.Close()
		return ErrUnsupportedFormat
	}
	if err != nil {
		file.Close()
		return err
	}

	if !c.initialized {
		if err := speaker.Init(c.sampleRate, c.sampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			file.Close()
			return err
		}
		c.initialized = true
	}

	c.file = file
	c.streamer = streamer
	c.format = format

	resampled := beep.Resample(4, format.SampleRate, c.sampleRate, streamer)
	c.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	c.volume = &effects.Volume{Streamer: c.ctrl, Base: 2, Silent: c.muted}

	c.drained.Store(false)
	c.queueLocked()
	return nil
}

// queueLocked hands the current volume chain to the speaker, with a callback
// marking the stream drained once it runs out. The callback fires on the
// speaker goroutine with the speaker lock held, so it only touches atomics.
func (c *BeepCapability) queueLocked() {
	speaker.Play(beep.Seq(c.volume, beep.Callback(func() {
		c.drained.Store(true)
	})))
}

// Start begins or resumes output.
func (c *BeepCapability) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Paused = false
	speaker.Unlock()
}

// Stop halts output.
func (c *BeepCapability) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Paused = true
	speaker.Unlock()
}

// Close releases the open stream.
func (c *BeepCapability) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *BeepCapability) closeLocked() {
	if c.initialized {
		speaker.Clear()
	}
	if c.streamer != nil {
		c.streamer.Close()
		c.streamer = nil
	}
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	c.ctrl = nil
	c.volume = nil
	c.drained.Store(false)
}

// Position returns the current stream position.
func (c *BeepCapability) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := c.streamer.Position()
	speaker.Unlock()

	return c.format.SampleRate.D(pos)
}

// SetPosition seeks the stream. A stream that already ran to completion is
// requeued so playback can continue from the new position (loop restart).
func (c *BeepCapability) SetPosition(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamer == nil {
		return nil
	}
	if d < 0 {
		d = 0
	}

	samples := c.format.SampleRate.N(d)
	if total := c.streamer.Len(); samples > total {
		samples = total
	}

	speaker.Lock()
	err := c.streamer.Seek(samples)
	speaker.Unlock()
	if err != nil {
		return err
	}

	if c.drained.Swap(false) {
		c.queueLocked()
	}
	return nil
}

// Duration returns the total length of the open stream.
func (c *BeepCapability) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamer == nil {
		return 0
	}
	return c.format.SampleRate.D(c.streamer.Len())
}

// SetMuted silences or restores output.
func (c *BeepCapability) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.muted = muted
	if c.volume == nil {
		return
	}
	speaker.Lock()
	c.volume.Silent = muted
	speaker.Unlock()
}
