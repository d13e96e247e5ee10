// Package midiexport converts a song into a standard MIDI file. The export
// is a flat rendering of each track's event stream: control flow is not
// expanded, so a looping song exports one pass.
package midiexport

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

// TicksPerBeat matches the sequence tick base: 24 ticks per quarter note.
const TicksPerBeat = 24

type timedMessage struct {
	tick int
	msg  []byte
}

// Export renders the song to an SMF type-1 file, one MIDI track per sequence
// track. Driver tempo values are halved to beats per minute.
func Export(sng *song.Song) (*smf.SMF, error) {
	if sng == nil || len(sng.Tracks) == 0 {
		return nil, fmt.Errorf("midiexport: song has no tracks")
	}
	out := smf.New()
	out.TimeFormat = smf.MetricTicks(TicksPerBeat)
	for i, seq := range sng.Tracks {
		msgs := trackMessages(sng, i, seq)
		sort.SliceStable(msgs, func(a, b int) bool { return msgs[a].tick < msgs[b].tick })
		var tr smf.Track
		last := 0
		for _, m := range msgs {
			tr.Add(uint32(m.tick-last), m.msg)
			last = m.tick
		}
		tr.Close(0)
		if err := out.Add(tr); err != nil {
			return nil, fmt.Errorf("midiexport: track %d: %w", i, err)
		}
	}
	return out, nil
}

// ExportFile writes the song to path as a .mid file.
func ExportFile(sng *song.Song, path string) error {
	s, err := Export(sng)
	if err != nil {
		return err
	}
	return s.WriteFile(path)
}

func trackMessages(sng *song.Song, index int, seq song.Sequence) []timedMessage {
	ch := uint8(index % 16)
	var msgs []timedMessage
	add := func(tick int, msg []byte) {
		msgs = append(msgs, timedMessage{tick: tick, msg: msg})
	}
	if index == 0 {
		add(0, smf.MetaTempo(float64(sng.Engine.Descriptor().DefaultTempo)/2))
	}
	keyShift := 0
	for _, ev := range seq.Events {
		cmd := ev.Cmd
		switch cmd.Kind {
		case song.CmdNote:
			key := clampKey(cmd.Key + keyShift)
			vel := clampKey(cmd.Velocity)
			add(ev.Ticks, midi.NoteOn(ch, key, vel))
			add(noteEnd(sng, seq, ev), midi.NoteOff(ch, key))
		case song.CmdVoice:
			add(ev.Ticks, midi.ProgramChange(ch, uint8(cmd.Value&0x7F)))
		case song.CmdVolume:
			add(ev.Ticks, midi.ControlChange(ch, 7, clampKey(cmd.Value)))
		case song.CmdPan:
			add(ev.Ticks, midi.ControlChange(ch, 10, clampKey(cmd.Value+64)))
		case song.CmdBend:
			add(ev.Ticks, midi.Pitchbend(ch, int16(cmd.Value*128)))
		case song.CmdModDepth:
			add(ev.Ticks, midi.ControlChange(ch, 1, clampKey(cmd.Value)))
		case song.CmdTempo:
			if index == 0 {
				add(ev.Ticks, smf.MetaTempo(float64(cmd.Value)/2))
			}
		case song.CmdKeyShift:
			keyShift = cmd.Value
		}
	}
	return msgs
}

// noteEnd resolves where a note-off lands. Held notes end at the next
// end-of-tie for their key, or at the end of the song when none follows.
func noteEnd(sng *song.Song, seq song.Sequence, ev song.Event) int {
	if ev.Cmd.Duration >= 0 {
		return ev.Ticks + ev.Cmd.Duration
	}
	for _, next := range seq.Events {
		if next.Ticks < ev.Ticks || next.Cmd.Kind != song.CmdEndOfTie {
			continue
		}
		if next.Cmd.Key == 0 || next.Cmd.Key == ev.Cmd.Key {
			return next.Ticks
		}
	}
	return sng.TotalTicks
}

func clampKey(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
