// Package player implements the queue/playback state machine that
// drives a single audio output.
package player

import (
	"fmt"
	"math/rand"
	"sync"

	"cadenza/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Status is the playback lifecycle state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// RepeatMode selects end-of-queue behavior.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Item is one in-memory queue entry: a track plus a provenance tag.
type Item struct {
	ID     string       `json:"id"`
	Track  models.Track `json:"track"`
	Source string       `json:"source"`
}

// State is an immutable snapshot of the engine for API consumers.
type State struct {
	CurrentTrack *models.Track `json:"currentTrack"`
	Queue        []Item        `json:"queue"`
	QueueIndex   int           `json:"queueIndex"`
	Status       Status        `json:"status"`
	CurrentTime  float64       `json:"currentTime"`
	Duration     float64       `json:"duration"`
	Volume       float64       `json:"volume"`
	Muted        bool          `json:"muted"`
	Shuffle      bool          `json:"shuffle"`
	Repeat       RepeatMode    `json:"repeat"`
}

// PlayRecorder receives a fire-and-forget history append for every
// track selection. Failures are logged, never surfaced.
type PlayRecorder interface {
	RecordPlay(userID, trackID string) error
}

// Engine owns the playback queue and drives the output. All methods are
// safe for concurrent use; transitions always derive from current state
// so a user-issued next() and a natural end-of-track arriving together
// cannot double-advance.
type Engine struct {
	mu sync.Mutex

	currentTrack  *models.Track
	queue         []Item
	originalQueue []Item
	queueIndex    int
	status        Status
	currentTime   float64
	duration      float64
	volume        float64
	muted         bool
	shuffle       bool
	repeat        RepeatMode

	output   Output
	recorder PlayRecorder
	userID   string
	logger   *logrus.Logger
}

// NewEngine creates a stopped engine over the given output. recorder
// may be nil to disable history logging.
func NewEngine(output Output, recorder PlayRecorder, userID string, logger *logrus.Logger) *Engine {
	return &Engine{
		queueIndex: -1,
		status:     StatusStopped,
		volume:     0.8,
		repeat:     RepeatOff,
		output:     output,
		recorder:   recorder,
		userID:     userID,
		logger:     logger,
	}
}

func newItem(track models.Track, source string) Item {
	return Item{ID: uuid.NewString(), Track: track, Source: source}
}

func streamURL(trackID string) string {
	return fmt.Sprintf("/api/tracks/%s/stream", trackID)
}

// State returns a snapshot of the current engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	queue := make([]Item, len(e.queue))
	copy(queue, e.queue)

	var current *models.Track
	if e.currentTrack != nil {
		c := *e.currentTrack
		current = &c
	}
	return State{
		CurrentTrack: current,
		Queue:        queue,
		QueueIndex:   e.queueIndex,
		Status:       e.status,
		CurrentTime:  e.currentTime,
		Duration:     e.duration,
		Volume:       e.volume,
		Muted:        e.muted,
		Shuffle:      e.shuffle,
		Repeat:       e.repeat,
	}
}

// loadCurrent points the output at the current track and begins
// loading. Caller holds the lock and has already set currentTrack.
func (e *Engine) loadCurrent() {
	track := e.currentTrack
	e.status = StatusLoading
	e.currentTime = 0
	e.duration = float64(track.Duration)
	e.output.Load(streamURL(track.ID))
	e.output.Play()

	if e.recorder != nil {
		recorder, userID, trackID := e.recorder, e.userID, track.ID
		go func() {
			if err := recorder.RecordPlay(userID, trackID); err != nil {
				e.logger.WithError(err).WithField("track_id", trackID).Warn("Failed to record play")
			}
		}()
	}
}

// selectIndex makes queue[i] current and starts loading it.
// Caller holds the lock; i must be in bounds.
func (e *Engine) selectIndex(i int) {
	e.queueIndex = i
	track := e.queue[i].Track
	e.currentTrack = &track
	e.loadCurrent()
}

// Play selects a track. A track found in the queue moves the index to
// it; a track not in the queue plays detached without touching queue
// contents. A nil track resumes from the current queue index.
func (e *Engine) Play(track *models.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if track != nil {
		if idx := e.indexOfTrack(track.ID); idx >= 0 {
			e.selectIndex(idx)
			return
		}
		t := *track
		e.currentTrack = &t
		e.loadCurrent()
		return
	}

	if e.queueIndex >= 0 && e.queueIndex < len(e.queue) {
		e.selectIndex(e.queueIndex)
	}
}

// indexOfTrack returns the queue position of a track ID, or -1.
// Caller holds the lock.
func (e *Engine) indexOfTrack(trackID string) int {
	for i, item := range e.queue {
		if item.Track.ID == trackID {
			return i
		}
	}
	return -1
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output.Pause()
	e.status = StatusPaused
}

// Resume restarts a paused output; it assumes a track is loaded.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output.Play()
	e.status = StatusPlaying
}

// Stop pauses and rewinds the output. Queue and current track survive.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	e.output.Pause()
	e.output.Seek(0)
	e.status = StatusStopped
	e.currentTime = 0
}

// Next advances the queue. At the end with repeat off it stops without
// moving the index. This is also the natural end-of-track transition.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return
	}

	var nextIndex int
	switch {
	case e.repeat == RepeatOne:
		nextIndex = e.queueIndex
	case e.queueIndex < len(e.queue)-1:
		nextIndex = e.queueIndex + 1
	case e.repeat == RepeatAll:
		nextIndex = 0
	default:
		e.stopLocked()
		return
	}
	e.selectIndex(nextIndex)
}

// Previous restarts the current track when more than 3 seconds in;
// otherwise it steps back, wrapping only under repeat-all and clamping
// to the first entry otherwise.
func (e *Engine) Previous() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return
	}
	if e.currentTime > 3 {
		e.output.Seek(0)
		e.currentTime = 0
		return
	}

	var prevIndex int
	switch {
	case e.queueIndex > 0:
		prevIndex = e.queueIndex - 1
	case e.repeat == RepeatAll:
		prevIndex = len(e.queue) - 1
	default:
		prevIndex = 0
	}
	e.selectIndex(prevIndex)
}

// Seek jumps the output to the given time.
func (e *Engine) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output.Seek(seconds)
	e.currentTime = seconds
}

// SetQueue replaces the queue wholesale and starts playing. Under
// shuffle the start track is pinned first and the rest permuted;
// originalQueue always keeps the submitted order.
func (e *Engine) SetQueue(tracks []models.Track, startIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := make([]Item, len(tracks))
	for i, t := range tracks {
		items[i] = newItem(t, "library")
	}
	if len(items) == 0 {
		e.queue = nil
		e.originalQueue = nil
		e.queueIndex = -1
		e.currentTrack = nil
		e.stopLocked()
		return
	}
	if startIndex < 0 || startIndex >= len(items) {
		startIndex = 0
	}

	e.originalQueue = items
	if e.shuffle {
		rest := make([]Item, 0, len(items)-1)
		for i, item := range items {
			if i != startIndex {
				rest = append(rest, item)
			}
		}
		rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		e.queue = append([]Item{items[startIndex]}, rest...)
		e.selectIndex(0)
	} else {
		e.queue = items
		e.selectIndex(startIndex)
	}
}

// AddToQueue appends tracks to both orderings without interrupting
// playback.
func (e *Engine) AddToQueue(tracks []models.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range tracks {
		item := newItem(t, "manual")
		e.queue = append(e.queue, item)
		e.originalQueue = append(e.originalQueue, item)
	}
}

// RemoveFromQueue deletes one entry, keeping the index pointed at the
// same logical track where possible.
func (e *Engine) RemoveFromQueue(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.queue) {
		return
	}
	e.queue = append(e.queue[:index], e.queue[index+1:]...)

	newIndex := e.queueIndex
	if index < e.queueIndex {
		newIndex--
	}
	if index == e.queueIndex && newIndex >= len(e.queue) {
		newIndex = len(e.queue) - 1
		if newIndex < 0 {
			newIndex = 0
		}
	}
	e.queueIndex = newIndex
}

// MoveInQueue relocates one entry, recomputing the index so it keeps
// referencing the same logical track.
func (e *Engine) MoveInQueue(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if from < 0 || from >= len(e.queue) || to < 0 || to >= len(e.queue) || from == to {
		return
	}

	item := e.queue[from]
	e.queue = append(e.queue[:from], e.queue[from+1:]...)
	rest := make([]Item, 0, len(e.queue)+1)
	rest = append(rest, e.queue[:to]...)
	rest = append(rest, item)
	rest = append(rest, e.queue[to:]...)
	e.queue = rest

	switch {
	case from == e.queueIndex:
		e.queueIndex = to
	case from < e.queueIndex && to >= e.queueIndex:
		e.queueIndex--
	case from > e.queueIndex && to <= e.queueIndex:
		e.queueIndex++
	}
}

// ClearQueue stops playback and empties both orderings.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.queue = nil
	e.originalQueue = nil
	e.queueIndex = -1
	e.currentTrack = nil
}

// SetVolume sets the output volume; zero also flags mute.
func (e *Engine) SetVolume(volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	e.volume = volume
	e.muted = volume == 0
	e.output.SetVolume(volume)
}

// ToggleMute flips mute; the stored volume survives so unmuting
// restores the last explicit level.
func (e *Engine) ToggleMute() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.muted = !e.muted
	if e.muted {
		e.output.SetVolume(0)
	} else {
		e.output.SetVolume(e.volume)
	}
}

// ToggleShuffle enables shuffle by pinning the current entry first and
// permuting the rest, or disables it by restoring the original order
// and relocating the index to the current track.
func (e *Engine) ToggleShuffle() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.shuffle {
		e.shuffle = true
		if len(e.queue) == 0 {
			return
		}
		if e.queueIndex >= 0 && e.queueIndex < len(e.queue) {
			current := e.queue[e.queueIndex]
			rest := make([]Item, 0, len(e.queue)-1)
			for i, item := range e.queue {
				if i != e.queueIndex {
					rest = append(rest, item)
				}
			}
			rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
			e.queue = append([]Item{current}, rest...)
			e.queueIndex = 0
		} else {
			rand.Shuffle(len(e.queue), func(i, j int) { e.queue[i], e.queue[j] = e.queue[j], e.queue[i] })
		}
		return
	}

	e.shuffle = false
	e.queue = make([]Item, len(e.originalQueue))
	copy(e.queue, e.originalQueue)
	if e.currentTrack != nil {
		idx := e.indexOfTrack(e.currentTrack.ID)
		if idx < 0 {
			idx = 0
		}
		e.queueIndex = idx
	}
}

// CycleRepeat advances off -> all -> one -> off.
func (e *Engine) CycleRepeat() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.repeat {
	case RepeatOff:
		e.repeat = RepeatAll
	case RepeatAll:
		e.repeat = RepeatOne
	default:
		e.repeat = RepeatOff
	}
}

// HandleStarted is the output's signal that audio is actually flowing.
func (e *Engine) HandleStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusLoading {
		e.status = StatusPlaying
	}
}

// HandleTimeUpdate records the output's playback position.
func (e *Engine) HandleTimeUpdate(currentTime, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTime = currentTime
	if duration > 0 {
		e.duration = duration
	}
}

// HandleEnded is the natural end-of-track transition.
func (e *Engine) HandleEnded() {
	e.Next()
}

// HandleError logs an output failure. The engine neither retries nor
// skips ahead on error.
func (e *Engine) HandleError(err error) {
	e.logger.WithError(err).Error("Audio output reported an error")
}
