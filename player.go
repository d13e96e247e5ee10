// Package gbamusic plays GBA sequenced music in real time. A Player owns the
// sequencer core and a mixer and drives both from a fixed-rate frame clock
// matching the AGB vblank.
package gbamusic

import (
	"errors"
	"log/slog"
	"sync"

	intclock "github.com/HC1-1/GBAMusicStudio/internal/clock"
	intmixer "github.com/HC1-1/GBAMusicStudio/internal/mixer"
	intseq "github.com/HC1-1/GBAMusicStudio/internal/sequencer"
	intsong "github.com/HC1-1/GBAMusicStudio/internal/song"
)

// State is the player lifecycle state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateShutDown:
		return "shut down"
	}
	return "unknown"
}

// PlaybackEvent carries playback notifications from Watch().
type PlaybackEvent struct {
	Kind int
}

const (
	// EventSongEnded fires once per play-through, when the last track has
	// halted and the mixer has drained.
	EventSongEnded int = iota
)

// AudioOutput receives rendered stereo blocks from the frame loop.
type AudioOutput interface {
	Push(samples []float32)
	Flush()
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleRate int
	mixer      intseq.Mixer
	out        AudioOutput
	logger     *slog.Logger
	engine     *intsong.EngineKind
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{sampleRate: 48000}
}

func WithSampleRate(rate int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleRate = rate
	}
}

// WithMixer substitutes the synthesis backend. The default is the built-in
// mixer, recreated per song so reverb settings and channel state never leak
// between songs.
func WithMixer(m intseq.Mixer) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.mixer = m
	}
}

// WithAudioOutput attaches a realtime output; without one the player renders
// frames and discards them, which is still useful for driving Watch/Wait.
func WithAudioOutput(out AudioOutput) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.out = out
	}
}

func WithLogger(l *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.logger = l
	}
}

// WithEngine forces every loaded song onto the given driver model, overriding
// the engine recorded in the song file. Useful for A/B comparison of the two
// drivers on the same sequence data.
func WithEngine(kind intsong.EngineKind) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.engine = &kind
	}
}

type Player struct {
	mu sync.Mutex

	log        *slog.Logger
	sampleRate int
	customMix  bool
	mixer      intseq.Mixer
	seq        *intseq.Sequencer
	out        AudioOutput
	barrier    *intclock.TimeBarrier

	engine *intsong.EngineKind

	state      State
	song       *intsong.Song
	tempoStack int
	volume     float64
	frameBuf   []float32

	done      chan struct{}
	loopDone  chan struct{}
	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

// NewPlayer creates a player and starts its frame loop. The loop idles until
// a song is set and Play is called; ShutDown terminates it.
func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	p := &Player{
		log:        cfg.logger,
		sampleRate: cfg.sampleRate,
		customMix:  cfg.mixer != nil,
		mixer:      cfg.mixer,
		out:        cfg.out,
		engine:     cfg.engine,
		barrier:    intclock.New(intsong.FrameRate),
		volume:     1,
		frameBuf:   make([]float32, framesPerUpdate(cfg.sampleRate)*2),
		loopDone:   make(chan struct{}),
	}
	if p.mixer == nil {
		p.mixer = intmixer.New(cfg.sampleRate, 0)
	}
	p.seq = intseq.New(p.mixer, p.log)
	p.barrier.Start()
	go p.run()
	return p, nil
}

// framesPerUpdate is the output sample frames rendered per clock period.
func framesPerUpdate(sampleRate int) int {
	n := int(float64(sampleRate) / intsong.FrameRate)
	if n < 1 {
		n = 1
	}
	return n
}

// run is the frame loop: one barrier period equals one frame of musical
// time. Tempo accumulates every frame; each time it crosses the engine
// threshold one musical tick executes.
func (p *Player) run() {
	defer close(p.loopDone)
	for {
		p.barrier.Wait()
		p.mu.Lock()
		if p.state == StateShutDown {
			p.mu.Unlock()
			return
		}
		ended := false
		if p.state == StatePlaying {
			threshold := p.seq.Engine().TickThreshold
			if threshold > 0 {
				p.tempoStack += p.seq.Tempo()
				for p.tempoStack >= threshold {
					p.tempoStack -= threshold
					if p.seq.Tick() {
						ended = true
						break
					}
				}
			}
		}
		if p.state != StatePaused {
			p.mixer.RenderFrame(p.frameBuf)
			if p.out != nil {
				p.out.Push(p.frameBuf)
			}
		}
		if ended {
			p.state = StateStopped
			p.mixer.SilenceAll()
		}
		p.mu.Unlock()
		if ended {
			p.sendEvent(PlaybackEvent{Kind: EventSongEnded})
			p.signalDone()
		}
	}
}

// SetSong installs a song, stopping any current playback. The default mixer
// is rebuilt so the song's reverb setting takes effect.
func (p *Player) SetSong(sng *intsong.Song) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateShutDown {
		return
	}
	p.stopLocked()
	if p.engine != nil && sng.Engine != *p.engine {
		forced := *sng
		forced.Engine = *p.engine
		sng = &forced
	}
	p.song = sng
	if !p.customMix {
		m := intmixer.New(p.sampleRate, sng.Reverb)
		m.SetMasterGain(defaultGain * p.volume)
		p.mixer = m
		p.seq = intseq.New(p.mixer, p.log)
	}
	p.seq.SetSong(sng)
}

const defaultGain = 0.32

// Play starts the loaded song from the beginning. A song with no tracks
// completes immediately.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.state == StateShutDown {
		p.mu.Unlock()
		return errors.New("player is shut down")
	}
	if p.song == nil {
		p.mu.Unlock()
		return errors.New("no song loaded")
	}
	p.stopLocked()
	p.done = make(chan struct{})
	p.seq.Reset()
	p.tempoStack = 0
	if p.seq.TrackCount() == 0 {
		p.state = StateStopped
		p.mu.Unlock()
		p.sendEvent(PlaybackEvent{Kind: EventSongEnded})
		p.signalDone()
		return nil
	}
	p.state = StatePlaying
	p.mu.Unlock()
	return nil
}

// Pause toggles between playing and paused.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StatePlaying:
		p.state = StatePaused
	case StatePaused:
		p.state = StatePlaying
	}
}

// Stop halts playback and silences the mixer. Stopping an already stopped
// player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
}

// stopLocked halts playback and releases any Wait callers. Callers hold p.mu.
func (p *Player) stopLocked() {
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	if p.state == StateStopped || p.state == StateShutDown {
		return
	}
	p.state = StateStopped
	p.mixer.SilenceAll()
	p.tempoStack = 0
	if p.out != nil {
		p.out.Flush()
	}
}

// ShutDown stops playback and terminates the frame loop, waiting for it to
// exit. The player cannot be reused afterwards.
func (p *Player) ShutDown() {
	p.mu.Lock()
	if p.state == StateShutDown {
		p.mu.Unlock()
		return
	}
	p.stopLocked()
	p.state = StateShutDown
	p.mu.Unlock()
	<-p.loopDone
	p.barrier.Stop()
}

// SetPosition seeks to an absolute tick. Playback is held paused for the
// duration of the replay and the prior state is restored.
func (p *Player) SetPosition(tick int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateShutDown || p.song == nil {
		return
	}
	prior := p.state
	if prior == StatePlaying {
		p.state = StatePaused
	}
	p.seq.Seek(tick)
	if p.out != nil {
		p.out.Flush()
	}
	p.state = prior
}

func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq.Position()
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Song() *intsong.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

// SetMasterVolume sets the runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if m, ok := p.mixer.(interface{ SetMasterGain(float64) }); ok {
		m.SetMasterGain(defaultGain * volume)
	}
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Wait blocks until the current play-through ends or is stopped. It returns
// immediately when nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel receiving playback events. The channel is buffered
// (cap 8) and events are dropped rather than blocking the frame loop. Only
// the most recent Watch channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}
