package player

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"midnightmedia/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State identifies where the session is in its playback lifecycle
type State int

const (
	// StateIdle means no working list is loaded or nothing is selected
	StateIdle State = iota
	// StateStopped means a valid item is selected but not playing
	StateStopped
	// StatePlaying means the audio capability is actively producing output
	StatePlaying
	// StateSeeking means the user is dragging the position control;
	// automatic end-of-track advancement is suppressed until release
	StateSeeking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateSeeking:
		return "seeking"
	default:
		return "unknown"
	}
}

var (
	ErrNoMedia         = errors.New("no media in working list")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotSeeking      = errors.New("not seeking")
)

// Session is the playback sequencing state machine. It owns the working list,
// the current index and the shuffle/loop/mute flags, and drives the audio
// capability in response to user intent and the progress poll.
type Session struct {
	mu sync.Mutex

	id    string
	list  []models.Media
	index int
	state State

	shuffled bool
	looped   bool
	muted    bool

	// state to return to when a seek drag ends
	seekReturn State

	capability Capability
	rng        *rand.Rand
	logger     *logrus.Logger
	hub        *statusHub

	pollInterval time.Duration
	stopPoll     chan struct{}
	pollOnce     sync.Once
}

// NewSession creates a playback session over the given capability and starts
// its progress poll. Call Close when finished.
func NewSession(capability Capability, pollInterval time.Duration) *Session {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}

	s := &Session{
		id:           uuid.NewString(),
		index:        -1,
		state:        StateIdle,
		capability:   capability,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:       logger,
		hub:          newStatusHub(),
		pollInterval: pollInterval,
		stopPoll:     make(chan struct{}),
	}

	go s.pollProgress()
	return s
}

// transition is the single place session state changes. Callers hold s.mu.
func (s *Session) transition(to State) {
	if s.state != to {
		s.logger.WithFields(logrus.Fields{
			"session": s.id,
			"from":    s.state.String(),
			"to":      to.String(),
		}).Debug("Playback state transition")
	}
	s.state = to
	s.publishLocked()
}

// playingLocked reports whether the capability is producing output. A seek
// drag entered from Playing keeps the capability running, so Seeking counts
// as playing when the drag began there.
func (s *Session) playingLocked() bool {
	return s.state == StatePlaying || (s.state == StateSeeking && s.seekReturn == StatePlaying)
}

// LoadList replaces the working list wholesale, stopping playback and
// resetting the selection. A fresh session ID marks the new list generation.
func (s *Session) LoadList(media []models.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.capability.Stop()
	s.capability.Close()

	s.list = make([]models.Media, len(media))
	copy(s.list, media)
	s.index = -1
	s.id = uuid.NewString()
	s.transition(StateIdle)

	s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"count":   len(s.list),
	}).Info("Working list loaded")
}

// Select makes the item at index the current one. If the session is playing,
// playback restarts immediately at the new index; otherwise the session
// settles in Stopped.
func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.list) {
		return ErrIndexOutOfRange
	}

	s.index = index
	if s.playingLocked() {
		return s.playCurrentLocked()
	}

	s.capability.Stop()
	s.transition(StateStopped)
	return nil
}

// TogglePlay flips between playing and stopped. With nothing selected yet it
// starts from the first item.
func (s *Session) TogglePlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.list) == 0 {
		return ErrNoMedia
	}

	if s.index < 0 {
		s.index = 0
	}

	if !s.playingLocked() {
		return s.playCurrentLocked()
	}

	s.capability.Stop()
	s.transition(StateStopped)
	return nil
}

// Next advances to the next item and plays it. Sequential mode wraps around;
// shuffle picks a uniformly random index.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(1)
}

// Previous moves to the previous item and plays it. Under shuffle it picks a
// fresh random index, matching Next.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(-1)
}

// advanceLocked moves the index by direction (+1/-1) under the current
// shuffle policy and starts playback. Empty list is a no-op.
func (s *Session) advanceLocked(direction int) error {
	n := len(s.list)
	if n == 0 {
		return nil
	}

	switch {
	case s.shuffled:
		s.index = s.rng.Intn(n)
	case s.index < 0:
		// Nothing selected yet: Next starts at the first item,
		// Previous at the last.
		if direction > 0 {
			s.index = 0
		} else {
			s.index = n - 1
		}
	default:
		s.index = ((s.index+direction)%n + n) % n
	}

	return s.playCurrentLocked()
}

// playCurrentLocked opens and starts the current item. A missing file or a
// capability failure is reported to the caller and leaves the session
// stopped; playback never advances past a broken item on its own.
func (s *Session) playCurrentLocked() error {
	if s.index < 0 || s.index >= len(s.list) {
		return ErrIndexOutOfRange
	}
	media := s.list[s.index]

	s.capability.Stop()

	if _, err := os.Stat(media.Path); err != nil {
		s.transition(StateStopped)
		s.logger.WithFields(logrus.Fields{
			"session": s.id,
			"path":    media.Path,
		}).Warn("Media file missing at play time")
		return fmt.Errorf("file not found: %s: %w", media.Path, err)
	}

	if err := s.capability.Open(media.Path); err != nil {
		s.transition(StateStopped)
		return fmt.Errorf("failed to open %s: %w", media.Path, err)
	}

	s.capability.SetMuted(s.muted)
	s.capability.Start()
	s.transition(StatePlaying)

	s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"index":   s.index,
		"name":    media.Name,
	}).Info("Playing media")
	return nil
}

// ToggleShuffle flips shuffle mode and returns the new value.
func (s *Session) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffled = !s.shuffled
	s.publishLocked()
	return s.shuffled
}

// ToggleLoop flips loop mode and returns the new value.
func (s *Session) ToggleLoop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.looped = !s.looped
	s.publishLocked()
	return s.looped
}

// ToggleMute flips the mute flag and forwards it to the capability.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	s.capability.SetMuted(s.muted)
	s.publishLocked()
	return s.muted
}

// BeginSeek marks the start of a position drag. While seeking, the progress
// poll neither publishes positions nor auto-advances at end of track.
func (s *Session) BeginSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSeeking {
		return
	}
	s.seekReturn = s.state
	s.transition(StateSeeking)
}

// EndSeek applies the dragged position and resumes normal updates.
func (s *Session) EndSeek(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSeeking {
		return ErrNotSeeking
	}

	if err := s.capability.SetPosition(position); err != nil {
		s.transition(s.seekReturn)
		return fmt.Errorf("failed to seek: %w", err)
	}

	s.transition(s.seekReturn)
	return nil
}

// pollProgress periodically samples the capability while playing, publishing
// position updates and handling natural end of track (loop restarts the same
// item from zero, otherwise the session behaves as Next).
func (s *Session) pollProgress() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPoll:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}

	position := s.capability.Position()
	duration := s.capability.Duration()
	s.publishLocked()

	if duration > 0 && position >= duration {
		if s.looped {
			if err := s.capability.SetPosition(0); err != nil {
				s.logger.WithError(err).WithField("session", s.id).Error("Failed to restart looped media")
				return
			}
			s.capability.Start()
			return
		}
		if err := s.advanceLocked(1); err != nil {
			s.logger.WithError(err).WithField("session", s.id).Error("Failed to advance at end of track")
		}
	}
}

// Snapshot returns the current status.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Status {
	status := Status{
		SessionID: s.id,
		State:     s.state,
		Index:     s.index,
		Position:  s.capability.Position(),
		Duration:  s.capability.Duration(),
		Shuffled:  s.shuffled,
		Looped:    s.looped,
		Muted:     s.muted,
		UpdatedAt: time.Now(),
	}
	if s.index >= 0 && s.index < len(s.list) {
		media := s.list[s.index]
		status.Media = &media
	}
	return status
}

func (s *Session) publishLocked() {
	s.hub.publish(s.snapshotLocked())
}

// Subscribe returns a channel of status snapshots for observers.
func (s *Session) Subscribe() <-chan Status {
	return s.hub.Subscribe()
}

// Unsubscribe detaches a previously subscribed channel.
func (s *Session) Unsubscribe(ch <-chan Status) {
	s.hub.Unsubscribe(ch)
}

// Index returns the current index (-1 when nothing is selected).
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the progress poll and releases the capability.
func (s *Session) Close() {
	s.pollOnce.Do(func() {
		close(s.stopPoll)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.capability.Stop()
	s.capability.Close()
}
