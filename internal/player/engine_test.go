package player

import (
	"fmt"
	"sync"
	"testing"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// fakeOutput records the commands the engine issues.
type fakeOutput struct {
	mu      sync.Mutex
	loaded  []string
	playing bool
	seeks   []float64
	volume  float64
}

func (o *fakeOutput) Load(streamURL string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, streamURL)
}

func (o *fakeOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = true
}

func (o *fakeOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
}

func (o *fakeOutput) Seek(seconds float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seeks = append(o.seeks, seconds)
}

func (o *fakeOutput) SetVolume(volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = volume
}

func (o *fakeOutput) lastLoaded() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.loaded) == 0 {
		return ""
	}
	return o.loaded[len(o.loaded)-1]
}

func newTestEngine() (*Engine, *fakeOutput) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	out := &fakeOutput{}
	return NewEngine(out, nil, "default-user", logger), out
}

func makeTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:       fmt.Sprintf("track-%d", i),
			Title:    fmt.Sprintf("Track %d", i),
			Duration: 200,
		}
	}
	return tracks
}

func trackIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Track.ID
	}
	return ids
}

func TestSetQueueStartsPlayback(t *testing.T) {
	e, out := newTestEngine()
	e.SetQueue(makeTracks(3), 1)

	st := e.State()
	if st.QueueIndex != 1 {
		t.Errorf("expected index 1, got %d", st.QueueIndex)
	}
	if st.Status != StatusLoading {
		t.Errorf("expected loading status, got %s", st.Status)
	}
	if st.CurrentTrack == nil || st.CurrentTrack.ID != "track-1" {
		t.Errorf("expected track-1 current, got %+v", st.CurrentTrack)
	}
	if out.lastLoaded() != "/api/tracks/track-1/stream" {
		t.Errorf("unexpected stream URL %q", out.lastLoaded())
	}

	e.HandleStarted()
	if e.State().Status != StatusPlaying {
		t.Errorf("expected playing after output start, got %s", e.State().Status)
	}
}

func TestNextAdvancesAndStopsAtEnd(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 0)

	e.Next()
	if st := e.State(); st.QueueIndex != 1 || st.CurrentTrack.ID != "track-1" {
		t.Fatalf("after first next: index=%d track=%v", st.QueueIndex, st.CurrentTrack)
	}
	e.Next()
	if st := e.State(); st.QueueIndex != 2 || st.CurrentTrack.ID != "track-2" {
		t.Fatalf("after second next: index=%d track=%v", st.QueueIndex, st.CurrentTrack)
	}

	// End of queue with repeat off: stop, index stays put.
	e.Next()
	st := e.State()
	if st.Status != StatusStopped {
		t.Errorf("expected stopped at queue end, got %s", st.Status)
	}
	if st.QueueIndex != 2 {
		t.Errorf("index must not advance past the end, got %d", st.QueueIndex)
	}
}

func TestNextWrapsWithRepeatAll(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 0)
	e.CycleRepeat() // off -> all

	e.Next()
	e.Next()
	e.Next()
	st := e.State()
	if st.QueueIndex != 0 {
		t.Errorf("expected wrap to index 0, got %d", st.QueueIndex)
	}
	if st.Status == StatusStopped {
		t.Error("repeat-all must not stop at queue end")
	}
}

func TestNextWithRepeatOneRestartsSameTrack(t *testing.T) {
	e, out := newTestEngine()
	e.SetQueue(makeTracks(3), 1)
	e.CycleRepeat() // all
	e.CycleRepeat() // one

	loadsBefore := len(out.loaded)
	e.Next()
	st := e.State()
	if st.QueueIndex != 1 {
		t.Errorf("repeat-one must keep index 1, got %d", st.QueueIndex)
	}
	if len(out.loaded) != loadsBefore+1 {
		t.Error("repeat-one next should reload the current track")
	}
}

func TestPreviousRestartsAfterThreeSeconds(t *testing.T) {
	e, out := newTestEngine()
	e.SetQueue(makeTracks(3), 1)
	e.HandleTimeUpdate(5, 200)

	e.Previous()
	st := e.State()
	if st.QueueIndex != 1 {
		t.Errorf("restart must not change index, got %d", st.QueueIndex)
	}
	if st.CurrentTime != 0 {
		t.Errorf("expected rewind to 0, got %v", st.CurrentTime)
	}
	if len(out.seeks) == 0 || out.seeks[len(out.seeks)-1] != 0 {
		t.Errorf("expected a seek to 0, got %v", out.seeks)
	}
}

func TestPreviousStepsBackEarlyInTrack(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 1)
	e.HandleTimeUpdate(2, 200)

	e.Previous()
	if st := e.State(); st.QueueIndex != 0 {
		t.Errorf("expected step back to index 0, got %d", st.QueueIndex)
	}
}

func TestPreviousClampsAtIndexZero(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 0)

	e.Previous()
	if st := e.State(); st.QueueIndex != 0 {
		t.Errorf("previous at index 0 with repeat off must clamp, got %d", st.QueueIndex)
	}
}

func TestPreviousWrapsWithRepeatAll(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 0)
	e.CycleRepeat() // all

	e.Previous()
	if st := e.State(); st.QueueIndex != 2 {
		t.Errorf("expected wrap to last index, got %d", st.QueueIndex)
	}
}

func TestShuffleRoundTripPreservesOrder(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(6), 2)

	before := trackIDs(e.State().Queue)

	e.ToggleShuffle()
	st := e.State()
	if !st.Shuffle {
		t.Fatal("expected shuffle on")
	}
	if st.QueueIndex != 0 {
		t.Errorf("shuffle must pin current entry at index 0, got %d", st.QueueIndex)
	}
	if st.Queue[0].Track.ID != "track-2" {
		t.Errorf("expected current track pinned first, got %s", st.Queue[0].Track.ID)
	}
	if len(st.Queue) != len(before) {
		t.Fatalf("shuffle changed queue length: %d != %d", len(st.Queue), len(before))
	}
	seen := make(map[string]bool)
	for _, id := range trackIDs(st.Queue) {
		seen[id] = true
	}
	for _, id := range before {
		if !seen[id] {
			t.Errorf("shuffle lost track %s", id)
		}
	}

	e.ToggleShuffle()
	st = e.State()
	if st.Shuffle {
		t.Fatal("expected shuffle off")
	}
	after := trackIDs(st.Queue)
	for i, id := range before {
		if after[i] != id {
			t.Fatalf("original order not restored at %d: %s != %s", i, after[i], id)
		}
	}
	if st.Queue[st.QueueIndex].Track.ID != "track-2" {
		t.Errorf("index must follow the current track, points at %s",
			st.Queue[st.QueueIndex].Track.ID)
	}
}

func TestSetQueueUnderShufflePinsStartTrack(t *testing.T) {
	e, _ := newTestEngine()
	e.ToggleShuffle()
	e.SetQueue(makeTracks(5), 3)

	st := e.State()
	if st.QueueIndex != 0 {
		t.Errorf("expected index 0 under shuffle, got %d", st.QueueIndex)
	}
	if st.Queue[0].Track.ID != "track-3" {
		t.Errorf("expected start track pinned first, got %s", st.Queue[0].Track.ID)
	}
	if len(st.Queue) != 5 {
		t.Errorf("expected 5 queue entries, got %d", len(st.Queue))
	}
}

func TestRemoveFromQueueIndexArithmetic(t *testing.T) {
	t.Run("RemoveBeforeCurrent", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetQueue(makeTracks(4), 2)
		e.RemoveFromQueue(0)

		st := e.State()
		if st.QueueIndex != 1 {
			t.Errorf("expected index 1, got %d", st.QueueIndex)
		}
		if st.Queue[st.QueueIndex].Track.ID != "track-2" {
			t.Errorf("index must track the same logical track, got %s",
				st.Queue[st.QueueIndex].Track.ID)
		}
	})

	t.Run("RemoveCurrentAtEnd", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetQueue(makeTracks(3), 2)
		e.RemoveFromQueue(2)

		if st := e.State(); st.QueueIndex != 1 {
			t.Errorf("expected clamp to last valid index 1, got %d", st.QueueIndex)
		}
	})

	t.Run("RemoveAfterCurrent", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetQueue(makeTracks(4), 1)
		e.RemoveFromQueue(3)

		if st := e.State(); st.QueueIndex != 1 {
			t.Errorf("expected index unchanged, got %d", st.QueueIndex)
		}
	})
}

func TestMoveInQueueIndexArithmetic(t *testing.T) {
	t.Run("MoveCurrent", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetQueue(makeTracks(4), 1)
		e.MoveInQueue(1, 3)

		st := e.State()
		if st.QueueIndex != 3 {
			t.Errorf("expected index to follow moved entry to 3, got %d", st.QueueIndex)
		}
		if st.Queue[3].Track.ID != "track-1" {
			t.Errorf("expected track-1 at position 3, got %s", st.Queue[3].Track.ID)
		}
	})

	t.Run("MoveAcrossCurrentFromBefore", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetQueue(makeTracks(4), 2)
		e.MoveInQueue(0, 3)

		st := e.State()
		if st.QueueIndex != 1 {
			t.Errorf("expected index 1, got %d", st.QueueIndex)
		}
		if st.Queue[st.QueueIndex].Track.ID != "track-2" {
			t.Errorf("index must track the same logical track, got %s",
				st.Queue[st.QueueIndex].Track.ID)
		}
	})

	t.Run("MoveAcrossCurrentFromAfter", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetQueue(makeTracks(4), 1)
		e.MoveInQueue(3, 0)

		st := e.State()
		if st.QueueIndex != 2 {
			t.Errorf("expected index 2, got %d", st.QueueIndex)
		}
		if st.Queue[st.QueueIndex].Track.ID != "track-1" {
			t.Errorf("index must track the same logical track, got %s",
				st.Queue[st.QueueIndex].Track.ID)
		}
	})
}

func TestPlayTrackInQueueMovesIndex(t *testing.T) {
	e, _ := newTestEngine()
	tracks := makeTracks(3)
	e.SetQueue(tracks, 0)

	e.Play(&tracks[2])
	if st := e.State(); st.QueueIndex != 2 {
		t.Errorf("expected index 2, got %d", st.QueueIndex)
	}
}

func TestPlayDetachedTrackLeavesQueueAlone(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 1)

	adhoc := models.Track{ID: "detached", Title: "Ad hoc", Duration: 90}
	e.Play(&adhoc)

	st := e.State()
	if st.CurrentTrack.ID != "detached" {
		t.Errorf("expected detached track current, got %s", st.CurrentTrack.ID)
	}
	if len(st.Queue) != 3 {
		t.Errorf("detached play must not alter the queue, len=%d", len(st.Queue))
	}
}

func TestPauseResumeStop(t *testing.T) {
	e, out := newTestEngine()
	e.SetQueue(makeTracks(2), 0)
	e.HandleStarted()

	e.Pause()
	if e.State().Status != StatusPaused {
		t.Errorf("expected paused, got %s", e.State().Status)
	}
	out.mu.Lock()
	playing := out.playing
	out.mu.Unlock()
	if playing {
		t.Error("output should be paused")
	}

	e.Resume()
	if e.State().Status != StatusPlaying {
		t.Errorf("expected playing, got %s", e.State().Status)
	}

	e.HandleTimeUpdate(42, 200)
	e.Stop()
	st := e.State()
	if st.Status != StatusStopped || st.CurrentTime != 0 {
		t.Errorf("expected stopped at time 0, got %s at %v", st.Status, st.CurrentTime)
	}
	if st.CurrentTrack == nil || len(st.Queue) != 2 {
		t.Error("stop must preserve queue and current track")
	}
}

func TestVolumeAndMute(t *testing.T) {
	e, out := newTestEngine()

	e.SetVolume(0.5)
	if st := e.State(); st.Volume != 0.5 || st.Muted {
		t.Errorf("unexpected state after SetVolume: %+v", st)
	}

	e.ToggleMute()
	st := e.State()
	if !st.Muted || st.Volume != 0.5 {
		t.Errorf("mute must not clobber stored volume: %+v", st)
	}
	out.mu.Lock()
	v := out.volume
	out.mu.Unlock()
	if v != 0 {
		t.Errorf("expected output volume 0 while muted, got %v", v)
	}

	e.ToggleMute()
	out.mu.Lock()
	v = out.volume
	out.mu.Unlock()
	if v != 0.5 {
		t.Errorf("unmute must restore last volume, got %v", v)
	}

	e.SetVolume(0)
	if !e.State().Muted {
		t.Error("volume 0 should flag muted")
	}
	e.SetVolume(1.5)
	if e.State().Volume != 1 {
		t.Errorf("volume must clamp to 1, got %v", e.State().Volume)
	}
}

func TestCycleRepeat(t *testing.T) {
	e, _ := newTestEngine()

	want := []RepeatMode{RepeatAll, RepeatOne, RepeatOff, RepeatAll}
	for _, mode := range want {
		e.CycleRepeat()
		if got := e.State().Repeat; got != mode {
			t.Fatalf("expected repeat %s, got %s", mode, got)
		}
	}
}

func TestHandleEndedActsAsNext(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(2), 0)

	e.HandleEnded()
	if st := e.State(); st.QueueIndex != 1 {
		t.Errorf("natural end must advance the queue, index=%d", st.QueueIndex)
	}

	e.HandleEnded()
	if st := e.State(); st.Status != StatusStopped || st.QueueIndex != 1 {
		t.Errorf("end of queue must stop in place: %s index=%d", st.Status, st.QueueIndex)
	}
}

func TestClearQueue(t *testing.T) {
	e, _ := newTestEngine()
	e.SetQueue(makeTracks(3), 0)

	e.ClearQueue()
	st := e.State()
	if len(st.Queue) != 0 || st.QueueIndex != -1 || st.CurrentTrack != nil {
		t.Errorf("expected empty stopped state, got %+v", st)
	}
	if st.Status != StatusStopped {
		t.Errorf("expected stopped, got %s", st.Status)
	}
}
