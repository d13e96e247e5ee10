package sequencer

type soundingNote struct {
	ch        Channel
	key       int
	remaining int // ticks until release; -1 holds until end-of-tie
}

// Track is the mutable playback state of one engine channel slot. It is
// created on Reset and mutated only by the interpreter and the tick loop.
type Track struct {
	Index   int
	Cursor  int
	Delay   int
	Stopped bool
	Ready   bool // set by the first voice-select; notes are suppressed before it

	Voice     int
	Priority  int
	Volume    int
	Pan       int
	Bend      int
	BendRange int
	Tune      int
	KeyShift  int

	ModDepth int
	ModType  int // 0 = pitch, 1 = volume, 2 = pan
	LFOSpeed int
	LFODelay int

	EchoVolume int
	EchoLength int

	ReturnPoint int // single-slot call return index, -1 = empty
	LastKey     int

	lfoPhase      int
	lfoDelayCount int

	notes []soundingNote

	// ext is non-nil only for the tie-capable engine variant.
	ext *tieState
}

// tieState remembers the most recent held note so consecutive same-key note
// events extend it instead of retriggering.
type tieState struct {
	held    Channel
	heldKey int
	endTick int
}

// expire forgets a held note whose scheduled end has already passed, so a
// stale reference is never extended.
func (e *tieState) expire(now int) {
	if e.held != nil && now > e.endTick {
		e.held = nil
	}
}

// Reset returns the track to its start-of-song state. extends selects the
// tie-capable variant's extension payload.
func (t *Track) Reset(extends bool) {
	*t = Track{
		Index:       t.Index,
		Volume:      100,
		BendRange:   2,
		ReturnPoint: -1,
		LastKey:     -1,
	}
	if extends {
		t.ext = &tieState{}
	}
}

// lfoValue is the current modulation offset: a triangle wave over the 0-255
// phase scaled by depth.
func (t *Track) lfoValue() int {
	if t.ModDepth == 0 {
		return 0
	}
	p := t.lfoPhase & 0xFF
	var w int
	switch {
	case p < 64:
		w = 2 * p
	case p < 192:
		w = 255 - 2*p
	default:
		w = 2*p - 511
	}
	return t.ModDepth * w / 128
}

// advanceLFO steps the modulation phase once per musical tick, honoring the
// configured onset delay.
func (t *Track) advanceLFO() {
	if t.ModDepth == 0 {
		return
	}
	if t.lfoDelayCount < t.LFODelay {
		t.lfoDelayCount++
		return
	}
	t.lfoPhase = (t.lfoPhase + t.LFOSpeed) & 0xFF
}

// CurrentVolume folds volume modulation into the commanded track volume.
func (t *Track) CurrentVolume() int {
	v := t.Volume
	if t.ModType == 1 {
		v += t.lfoValue()
	}
	return clamp(v, 0, 127)
}

// CurrentPan folds pan modulation into the commanded pan position.
func (t *Track) CurrentPan() int {
	p := t.Pan
	if t.ModType == 2 {
		p += t.lfoValue()
	}
	return clamp(p, -64, 63)
}

// PitchOffset is the combined pitch adjustment in 1/64 semitone units: bend
// scaled by bend range, fine tune, and pitch modulation.
func (t *Track) PitchOffset() int {
	p := t.Bend*t.BendRange + t.Tune
	if t.ModType == 0 {
		p += t.lfoValue()
	}
	return p
}

// extendSounding adds ticks to the pending note-off of the given channel.
func (t *Track) extendSounding(ch Channel, ticks int) {
	for i := range t.notes {
		if t.notes[i].ch == ch && t.notes[i].remaining > 0 {
			t.notes[i].remaining += ticks
			return
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
