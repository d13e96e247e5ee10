// Package mixer renders sounding notes for the sequencer core. It models the
// GBA's output paths: a pool of PCM channels for sampled voices plus one
// dedicated slot per PSG generator (two squares, wave, noise).
package mixer

import (
	"math"
	"sync/atomic"

	"github.com/HC1-1/GBAMusicStudio/internal/sequencer"
	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

const (
	defaultDirectChannels = 12
	defaultMasterGain     = 0.32
	envClockRate          = 240.0
)

// Mixer implements sequencer.Mixer. All methods except SetMasterGain must be
// called from the goroutine driving the sequencer.
type Mixer struct {
	sampleRate float64
	masterGain uint64

	directs []*channel
	psg     [4]*channel // square1, square2, wave, noise

	envCounter int
	envPeriod  int

	reverb *reverb
}

// New creates a mixer at the given output sample rate. reverbLevel is the
// song's 0-127 wet amount; zero disables the reverb path entirely.
func New(sampleRate, reverbLevel int) *Mixer {
	period := int(float64(sampleRate) / envClockRate)
	if period <= 0 {
		period = 1
	}
	m := &Mixer{
		sampleRate: float64(sampleRate),
		masterGain: math.Float64bits(defaultMasterGain),
		envPeriod:  period,
	}
	for i := 0; i < defaultDirectChannels; i++ {
		m.directs = append(m.directs, &channel{})
	}
	for i := range m.psg {
		m.psg[i] = &channel{lfsr: lfsrSeed}
	}
	if reverbLevel > 0 {
		m.reverb = newReverb(sampleRate, float32(clampInt(reverbLevel, 0, 127))/127)
	}
	return m
}

func (m *Mixer) NewNote(req sequencer.NoteRequest) sequencer.Channel {
	if req.Voice == nil {
		return nil
	}
	var ch *channel
	switch req.Voice.Category {
	case song.VoiceSquare1:
		ch = m.claimPSG(0, req.Priority)
	case song.VoiceSquare2:
		ch = m.claimPSG(1, req.Priority)
	case song.VoiceWave:
		ch = m.claimPSG(2, req.Priority)
	case song.VoiceNoise:
		ch = m.claimPSG(3, req.Priority)
	default:
		ch = m.claimDirect(req.Priority)
	}
	if ch == nil {
		return nil
	}
	ch.start(req, m.sampleRate)
	return ch
}

// claimDirect picks a free PCM channel, or steals the lowest-priority oldest
// one. A request never steals from a strictly higher priority note.
func (m *Mixer) claimDirect(priority int) *channel {
	var victim *channel
	for _, ch := range m.directs {
		if !ch.active {
			return ch
		}
		if victim == nil || ch.steals(victim) {
			victim = ch
		}
	}
	if victim.priority > priority && !victim.released {
		return nil
	}
	return victim
}

func (m *Mixer) claimPSG(slot, priority int) *channel {
	ch := m.psg[slot]
	if ch.active && !ch.released && ch.priority > priority {
		return nil
	}
	return ch
}

// steals reports whether c is a better steal victim than other: released
// first, then lower priority, then older.
func (c *channel) steals(other *channel) bool {
	if c.released != other.released {
		return c.released
	}
	if c.priority != other.priority {
		return c.priority < other.priority
	}
	return c.age > other.age
}

func (m *Mixer) ReleaseTrack(track int) {
	m.each(func(ch *channel) {
		if ch.track == track {
			ch.Release()
		}
	})
}

func (m *Mixer) ReleaseKey(track, key int) {
	m.each(func(ch *channel) {
		if ch.track == track && ch.key == key {
			ch.Release()
		}
	})
}

func (m *Mixer) UpdateTrack(track, volume, pan, pitch int) {
	m.each(func(ch *channel) {
		if ch.track == track {
			ch.setTrackParams(volume, pan, pitch)
		}
	})
}

func (m *Mixer) TrackKeys(track int) []int {
	var keys []int
	m.each(func(ch *channel) {
		if ch.track == track {
			keys = append(keys, ch.key)
		}
	})
	return keys
}

func (m *Mixer) SilenceAll() {
	m.eachAll(func(ch *channel) { ch.cut() })
	if m.reverb != nil {
		m.reverb.reset()
	}
}

func (m *Mixer) Silent() bool {
	silent := true
	m.eachAll(func(ch *channel) {
		if ch.active {
			silent = false
		}
	})
	return silent
}

// RenderFrame renders interleaved stereo samples into dst.
func (m *Mixer) RenderFrame(dst []float32) {
	gain := m.masterGainValue()
	for i := 0; i+1 < len(dst); i += 2 {
		m.envCounter++
		if m.envCounter >= m.envPeriod {
			m.envCounter = 0
			m.clockEnvelopes()
		}
		var l, r float64
		m.eachAll(func(ch *channel) {
			cl, cr := ch.render()
			l += cl
			r += cr
		})
		l *= gain
		r *= gain
		fl, fr := float32(clampF(l, -1, 1)), float32(clampF(r, -1, 1))
		if m.reverb != nil {
			fl, fr = m.reverb.process(fl, fr)
		}
		dst[i] = fl
		dst[i+1] = fr
	}
}

func (m *Mixer) clockEnvelopes() {
	m.eachAll(func(ch *channel) { ch.clockEnvelope() })
}

// each visits active channels; eachAll visits every slot.
func (m *Mixer) each(f func(*channel)) {
	m.eachAll(func(ch *channel) {
		if ch.active {
			f(ch)
		}
	})
}

func (m *Mixer) eachAll(f func(*channel)) {
	for _, ch := range m.directs {
		f(ch)
	}
	for _, ch := range m.psg {
		f(ch)
	}
}

// SetMasterGain adjusts the output level. Safe to call from any goroutine.
func (m *Mixer) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&m.masterGain, math.Float64bits(gain))
}

func (m *Mixer) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&m.masterGain))
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
