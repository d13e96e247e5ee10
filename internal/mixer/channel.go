package mixer

import (
	"math"

	"github.com/HC1-1/GBAMusicStudio/internal/sequencer"
	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

const lfsrSeed = 0xACE1

type envState int

const (
	envOff envState = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// envelope is the GBA-style amplitude envelope: attack is an additive
// per-clock rate, decay and release are multiplicative per-clock factors,
// sustain is a target level, all on a 0-255 scale.
type envelope struct {
	state envState
	level float64
	adsr  song.ADSR
}

func (e *envelope) trigger(adsr song.ADSR) {
	e.adsr = adsr
	e.state = envAttack
	e.level = 0
	if adsr.Attack >= 255 {
		e.level = 1
		e.state = envDecay
	}
}

func (e *envelope) release() {
	if e.state != envOff {
		e.state = envRelease
	}
}

// clock advances the envelope one step and reports whether it is still
// audible.
func (e *envelope) clock() bool {
	switch e.state {
	case envAttack:
		e.level += float64(e.adsr.Attack) / 256
		if e.level >= 1 {
			e.level = 1
			e.state = envDecay
		}
	case envDecay:
		sustain := float64(e.adsr.Sustain) / 256
		e.level *= float64(e.adsr.Decay) / 256
		if e.level <= sustain {
			e.level = sustain
			e.state = envSustain
			if sustain == 0 {
				e.state = envOff
			}
		}
	case envRelease:
		e.level *= float64(e.adsr.Release) / 256
		if e.level < 1.0/256 {
			e.level = 0
			e.state = envOff
		}
	}
	return e.state != envOff
}

// channel is one sounding voice instance. It implements sequencer.Channel.
type channel struct {
	active   bool
	released bool

	track    int
	key      int // commanded key, the sequencer's release handle
	priority int
	age      int

	kind     song.VoiceCategory
	velocity float64 // 0..1
	trackVol float64 // 0..1
	pan      float64 // -64..63
	pitch    int     // 1/64 semitone

	sampleRate  float64
	soundingKey int
	step        float64
	phase       float64

	duty    float64
	wave    []float64
	pattern int
	lfsr    uint16

	sample    *song.Sample
	fixed     bool
	samplePos float64

	env envelope
}

func (c *channel) start(req sequencer.NoteRequest, sampleRate float64) {
	lfsr := c.lfsr
	if lfsr == 0 {
		lfsr = lfsrSeed
	}
	*c = channel{
		active:      true,
		track:       req.Track,
		key:         req.Key,
		priority:    req.Priority,
		kind:        req.Voice.Category,
		velocity:    float64(clampInt(req.Velocity, 0, 127)) / 127,
		trackVol:    float64(clampInt(req.Volume, 0, 127)) / 127,
		pan:         float64(clampInt(req.Pan, -64, 63)),
		pitch:       req.Pitch,
		sampleRate:  sampleRate,
		soundingKey: req.SoundingKey,
		duty:        req.Voice.Duty,
		pattern:     req.Voice.Pattern,
		lfsr:        lfsr,
		sample:      req.Voice.Sample,
		fixed:       req.Voice.Fixed,
	}
	if c.duty <= 0 || c.duty >= 1 {
		c.duty = 0.5
	}
	if c.kind == song.VoiceWave {
		c.wave = unpackWave(req.Voice.Wave)
	}
	c.recalcStep()
	c.env.trigger(req.ADSR)
}

// recalcStep derives the per-sample phase increment from the sounding key
// and the current pitch offset.
func (c *channel) recalcStep() {
	semis := float64(c.soundingKey-69) + float64(c.pitch)/64
	switch c.kind {
	case song.VoiceDirect:
		if c.sample == nil || c.sample.Rate <= 0 {
			c.step = 0
			return
		}
		ratio := float64(c.sample.Rate) / c.sampleRate
		if c.fixed {
			c.step = ratio
			return
		}
		// Sample data is recorded at middle C.
		c.step = ratio * math.Pow(2, (float64(c.soundingKey-60)+float64(c.pitch)/64)/12)
	case song.VoiceNoise:
		// LFSR clock rate scales with key; the step counts LFSR shifts
		// per output sample.
		c.step = 440 * math.Pow(2, semis/12) * 16 / c.sampleRate
	default:
		c.step = 440 * math.Pow(2, semis/12) / c.sampleRate
	}
}

func (c *channel) setTrackParams(volume, pan, pitch int) {
	c.trackVol = float64(clampInt(volume, 0, 127)) / 127
	c.pan = float64(clampInt(pan, -64, 63))
	if pitch != c.pitch {
		c.pitch = pitch
		c.recalcStep()
	}
}

// Release starts the envelope release phase. The channel stays active until
// the envelope decays to silence.
func (c *channel) Release() {
	if !c.active || c.released {
		return
	}
	c.released = true
	c.env.release()
}

// Extend is tie bookkeeping only: note-off timing lives in the sequencer, so
// an extended note simply keeps sounding.
func (c *channel) Extend(ticks int) {}

func (c *channel) Key() int { return c.key }

func (c *channel) Active() bool { return c.active }

// cut silences the channel immediately, bypassing the release phase.
func (c *channel) cut() {
	lfsr := c.lfsr
	*c = channel{lfsr: lfsr}
}

func (c *channel) clockEnvelope() {
	if !c.active {
		return
	}
	c.age++
	if !c.env.clock() {
		c.cut()
	}
}

// render produces one stereo sample pair.
func (c *channel) render() (float64, float64) {
	if !c.active {
		return 0, 0
	}
	var v float64
	switch c.kind {
	case song.VoiceSquare1, song.VoiceSquare2:
		v = c.renderSquare()
	case song.VoiceWave:
		v = c.renderWave()
	case song.VoiceNoise:
		v = c.renderNoise()
	default:
		v = c.renderSample()
	}
	amp := c.velocity * c.trackVol * c.env.level
	if c.kind != song.VoiceDirect {
		amp = quantize(amp, 16)
	}
	angle := ((c.pan + 64.0) / 128.0) * (math.Pi / 2.0)
	return v * amp * math.Cos(angle), v * amp * math.Sin(angle)
}

func (c *channel) renderSquare() float64 {
	c.phase += c.step
	if c.phase >= 1 {
		c.phase -= 1
	}
	v := -1.0
	if c.phase < c.duty {
		v = 1
	}
	v += polyBLEP(c.phase, c.step)
	v -= polyBLEP(math.Mod(c.phase-c.duty+1, 1), c.step)
	return v
}

func (c *channel) renderWave() float64 {
	if len(c.wave) == 0 {
		return 0
	}
	c.phase += c.step
	if c.phase >= 1 {
		c.phase -= 1
	}
	return c.wave[int(c.phase*float64(len(c.wave)))%len(c.wave)]
}

func (c *channel) renderNoise() float64 {
	c.phase += c.step
	for c.phase >= 1 {
		c.phase -= 1
		c.lfsr = c.shiftLFSR()
	}
	if c.lfsr&1 == 1 {
		return 1
	}
	return -1
}

// shiftLFSR steps the noise register: 15-bit normally, 7-bit when the voice
// selects the short pattern.
func (c *channel) shiftLFSR() uint16 {
	bit := (c.lfsr ^ (c.lfsr >> 1)) & 1
	if c.pattern == 1 {
		return ((c.lfsr >> 1) | (bit << 6)) & 0x7F
	}
	return ((c.lfsr >> 1) | (bit << 14)) & 0x7FFF
}

func (c *channel) renderSample() float64 {
	s := c.sample
	if s == nil || len(s.Data) == 0 || c.step <= 0 {
		c.cut()
		return 0
	}
	pos := c.samplePos
	c.samplePos += c.step
	if int(c.samplePos) >= len(s.Data) {
		if !s.Loop {
			c.cut()
			return 0
		}
		loopLen := float64(len(s.Data) - s.LoopPos)
		if loopLen <= 0 {
			c.cut()
			return 0
		}
		for int(c.samplePos) >= len(s.Data) {
			c.samplePos -= loopLen
		}
	}
	i := int(pos)
	if i >= len(s.Data) {
		i = len(s.Data) - 1
	}
	j := i + 1
	if j >= len(s.Data) {
		if s.Loop {
			j = s.LoopPos
		} else {
			j = i
		}
	}
	frac := pos - float64(i)
	return float64(s.Data[i])*(1-frac) + float64(s.Data[j])*frac
}

// unpackWave expands GBA wave RAM into normalized samples: 16 packed bytes
// become 32 4-bit steps; longer buffers are taken as one step per byte.
func unpackWave(raw []byte) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var steps []int
	if len(raw) == 16 {
		for _, b := range raw {
			steps = append(steps, int(b>>4), int(b&0x0F))
		}
	} else {
		for _, b := range raw {
			steps = append(steps, int(b&0x0F))
		}
	}
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = float64(s)/7.5 - 1
	}
	return out
}

// polyBLEP reduces aliasing at waveform discontinuities.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// quantize snaps a level to the PSG's coarse volume steps.
func quantize(v float64, steps int) float64 {
	if steps <= 1 {
		return clampF(v, 0, 1)
	}
	return clampF(math.Round(v*float64(steps-1))/float64(steps-1), 0, 1)
}
