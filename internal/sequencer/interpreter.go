package sequencer

import "github.com/HC1-1/GBAMusicStudio/internal/song"

// exec runs exactly one pending command on the track and advances the cursor.
// It returns true when the command changed a parameter the mixer should be
// refreshed with at the end of the tick.
func (s *Sequencer) exec(t *Track) bool {
	seq := &s.song.Tracks[t.Index]
	if t.Cursor >= len(seq.Events) {
		// Running off the end halts the track like an implicit finish.
		s.halt(t)
		return false
	}
	ev := seq.Events[t.Cursor]
	if t.ext != nil {
		t.ext.expire(ev.Ticks)
	}

	changed := false
	switch cmd := ev.Cmd; cmd.Kind {
	case song.CmdJump:
		s.jump(t, seq, cmd.Target)
	case song.CmdCall:
		t.ReturnPoint = t.Cursor
		s.jump(t, seq, cmd.Target)
	case song.CmdReturn:
		if t.ReturnPoint >= 0 {
			t.Cursor = t.ReturnPoint
			t.ReturnPoint = -1
		}
	case song.CmdFinish:
		s.halt(t)
	case song.CmdPriority:
		t.Priority = cmd.Value
	case song.CmdTempo:
		s.tempo = cmd.Value
	case song.CmdKeyShift:
		t.KeyShift = cmd.Value
	case song.CmdRest:
		t.Delay = cmd.Duration
	case song.CmdVoice:
		t.Voice = cmd.Value
		t.Ready = true
	case song.CmdVolume:
		t.Volume = clamp(cmd.Value, 0, 127)
		changed = true
	case song.CmdPan:
		t.Pan = clamp(cmd.Value, -64, 63)
		changed = true
	case song.CmdBend:
		t.Bend = cmd.Value
		changed = true
	case song.CmdBendRange:
		t.BendRange = cmd.Value
		changed = true
	case song.CmdModDepth:
		t.ModDepth = cmd.Value
		changed = true
	case song.CmdModType:
		t.ModType = cmd.Value
		changed = true
	case song.CmdTune:
		t.Tune = cmd.Value
		changed = true
	case song.CmdLFOSpeed:
		t.LFOSpeed = cmd.Value
		t.lfoPhase = 0
		t.lfoDelayCount = 0
		changed = true
	case song.CmdLFODelay:
		t.LFODelay = cmd.Value
		t.lfoPhase = 0
		t.lfoDelayCount = 0
		changed = true
	case song.CmdEchoVolume:
		t.EchoVolume = cmd.Value
	case song.CmdEchoLength:
		t.EchoLength = cmd.Value
	case song.CmdEndOfTie:
		s.endOfTie(t, cmd)
	case song.CmdNote:
		s.playNote(t, ev)
	}
	t.Cursor++
	if t.ext != nil {
		s.lookahead(t, seq)
	}
	return changed
}

func (s *Sequencer) halt(t *Track) {
	t.Stopped = true
	t.notes = t.notes[:0]
	if t.ext != nil {
		t.ext.held = nil
	}
	if !s.muted {
		s.mixer.ReleaseTrack(t.Index)
	}
}

// jump moves the cursor to the event carrying the target offset. The cursor
// lands one step before it because exec advances after every command. An
// offset missing from the sequence is a data fault: the track halts rather
// than running from a corrupted cursor.
func (s *Sequencer) jump(t *Track, seq *song.Sequence, target int) {
	idx, err := seq.Resolve(target)
	if err != nil {
		s.log.Error("unresolved jump target, halting track",
			"track", t.Index, "err", err)
		s.halt(t)
		return
	}
	t.Cursor = idx - 1
	if t.Index == s.authoritative {
		s.position = seq.Events[idx].Ticks - 1
	}
}

func (s *Sequencer) playNote(t *Track, ev song.Event) {
	cmd := ev.Cmd
	if !t.Ready {
		return
	}
	key := clamp(cmd.Key+t.KeyShift, 0, 127)

	// Same-key note while one is still held: extend instead of retrigger.
	if t.ext != nil && t.ext.held != nil && t.ext.heldKey == key && cmd.Duration > 0 {
		t.ext.held.Extend(cmd.Duration)
		t.ext.endTick += cmd.Duration
		t.extendSounding(t.ext.held, cmd.Duration)
		return
	}

	ch := s.dispatch(t, key, cmd.Velocity, cmd.Duration)
	t.LastKey = key
	if ch == nil {
		return
	}
	t.notes = append(t.notes, soundingNote{ch: ch, key: key, remaining: cmd.Duration})
	if t.ext != nil && cmd.Duration > 0 {
		t.ext.held = ch
		t.ext.heldKey = key
		t.ext.endTick = ev.Ticks + cmd.Duration
	}
}

// lookahead implements the tie-capable variant's gapless extension: when the
// held note's scheduled end coincides exactly with the next event and that
// event is a same-key note, its duration is folded into the held note now and
// the event is consumed, avoiding a release/retrigger at the boundary.
func (s *Sequencer) lookahead(t *Track, seq *song.Sequence) {
	e := t.ext
	if e.held == nil || t.Cursor >= len(seq.Events) {
		return
	}
	next := seq.Events[t.Cursor]
	if next.Cmd.Kind != song.CmdNote || next.Cmd.Duration <= 0 {
		return
	}
	if clamp(next.Cmd.Key+t.KeyShift, 0, 127) != e.heldKey || next.Ticks != e.endTick {
		return
	}
	e.held.Extend(next.Cmd.Duration)
	e.endTick += next.Cmd.Duration
	t.extendSounding(e.held, next.Cmd.Duration)
	t.Cursor++
}

// endOfTie releases the most recent note on the track, or a specific key when
// the command names one (Key == 0 means unspecified: release the last-played
// key).
func (s *Sequencer) endOfTie(t *Track, cmd song.Command) {
	key := t.LastKey
	if cmd.Key > 0 {
		key = clamp(cmd.Key+t.KeyShift, 0, 127)
	}
	if key < 0 {
		return
	}
	for i := len(t.notes) - 1; i >= 0; i-- {
		if t.notes[i].key == key {
			t.notes = append(t.notes[:i], t.notes[i+1:]...)
			break
		}
	}
	if t.ext != nil && t.ext.held != nil && t.ext.heldKey == key {
		t.ext.held = nil
	}
	if !s.muted {
		s.mixer.ReleaseKey(t.Index, key)
	}
}
