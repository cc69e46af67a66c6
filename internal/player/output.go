package player

import "sync"

// Output is the single audio sink the engine drives. Loading is
// asynchronous: the sink reports back through the engine's Handle*
// methods once it actually starts producing audio.
type Output interface {
	// Load points the sink at a new stream URL and begins loading.
	Load(streamURL string)
	Play()
	Pause()
	Seek(seconds float64)
	SetVolume(volume float64)
}

// StreamOutput is the default sink: it records the engine's commands so
// the state endpoint can expose the active stream URL and volume to the
// client actually rendering audio.
type StreamOutput struct {
	mu        sync.Mutex
	streamURL string
	volume    float64
	playing   bool
	position  float64
}

func NewStreamOutput() *StreamOutput {
	return &StreamOutput{volume: 1.0}
}

func (o *StreamOutput) Load(streamURL string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamURL = streamURL
	o.position = 0
}

func (o *StreamOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = true
}

func (o *StreamOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
}

func (o *StreamOutput) Seek(seconds float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.position = seconds
}

func (o *StreamOutput) SetVolume(volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = volume
}

// StreamURL returns the most recently loaded stream URL.
func (o *StreamOutput) StreamURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streamURL
}
