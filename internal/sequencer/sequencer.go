// Package sequencer implements the musical core: per-track command
// interpretation, tempo-driven tick execution, note dispatch into the mixer,
// and the authoritative song position counter.
package sequencer

import (
	"log/slog"

	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

// seekBurstLimit bounds command execution during seek replay so a malformed
// delay-free jump cycle cannot hang the caller.
const seekBurstLimit = 1 << 20

// tickBurstLimit bounds the zero-delay command burst within a single tick.
// A jump cycle that never consumes time is the same data fault the seek
// replay guards against and gets the same treatment: halt the track.
const tickBurstLimit = 1 << 16

type Sequencer struct {
	log    *slog.Logger
	mixer  Mixer
	song   *song.Song
	engine song.Engine
	tracks []*Track

	tempo         int
	position      int
	authoritative int

	// muted suppresses all mixer side effects during seek replay.
	muted bool
}

func New(mixer Mixer, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{log: logger, mixer: mixer}
}

// SetSong installs a new song wholesale, sizing the track array to the
// engine's channel slots and reselecting the position-authoritative track.
func (s *Sequencer) SetSong(sng *song.Song) {
	s.song = sng
	s.engine = sng.Engine.Descriptor()
	n := len(sng.Tracks)
	if n > s.engine.TrackLimit {
		n = s.engine.TrackLimit
	}
	s.tracks = make([]*Track, n)
	for i := range s.tracks {
		s.tracks[i] = &Track{Index: i}
	}
	s.authoritative = sng.AuthoritativeTrackWithin(n)
	s.Reset()
}

// Reset reinitializes every track to the start of the song and restores the
// engine default tempo.
func (s *Sequencer) Reset() {
	for _, t := range s.tracks {
		t.Reset(s.engine.ExtendsNotes)
	}
	s.tempo = s.engine.DefaultTempo
	s.position = 0
}

func (s *Sequencer) Engine() song.Engine { return s.engine }
func (s *Sequencer) Tempo() int          { return s.tempo }
func (s *Sequencer) Position() int       { return s.position }
func (s *Sequencer) TrackCount() int     { return len(s.tracks) }

// Finished reports whether every track has halted and the mixer has gone
// silent.
func (s *Sequencer) Finished() bool {
	for _, t := range s.tracks {
		if !t.Stopped {
			return false
		}
	}
	return s.mixer.Silent()
}

// Tick executes exactly one musical tick across all tracks, in track order,
// and advances the global position. It returns true once the song has fully
// ended (all tracks stopped, nothing sounding).
func (s *Sequencer) Tick() bool {
	for _, t := range s.tracks {
		s.tickTrack(t)
	}
	s.position++
	return s.Finished()
}

func (s *Sequencer) tickTrack(t *Track) {
	if t.Stopped {
		return
	}
	if t.Delay > 0 {
		t.Delay--
	}
	s.ageNotes(t)
	changed := false
	steps := 0
	for !t.Stopped && t.Delay == 0 {
		if s.exec(t) {
			changed = true
		}
		if steps++; steps > tickBurstLimit {
			s.log.Error("delay-free command cycle, halting track", "track", t.Index)
			s.halt(t)
		}
	}
	t.advanceLFO()
	if (changed || t.ModDepth > 0) && !s.muted {
		s.mixer.UpdateTrack(t.Index, t.CurrentVolume(), t.CurrentPan(), t.PitchOffset())
	}
}

// ageNotes counts down pending note-offs and releases expired notes. The
// release goes through the mixer by track and key: the retained channel
// reference is only valid for same-tick tie extension, since the mixer may
// have handed the slot to another voice by the time the note expires.
// Notes started during the current tick are aged from the next tick on.
func (s *Sequencer) ageNotes(t *Track) {
	kept := t.notes[:0]
	for i := range t.notes {
		n := t.notes[i]
		if n.remaining > 0 {
			n.remaining--
		}
		if n.remaining == 0 {
			if !s.muted {
				s.mixer.ReleaseKey(t.Index, n.key)
			}
			if t.ext != nil && t.ext.held == n.ch {
				t.ext.held = nil
			}
			continue
		}
		kept = append(kept, n)
	}
	t.notes = kept
}

// Seek fast-forwards to the target tick by reinitializing every track and
// silently replaying its command stream; the partially-consumed delay at the
// crossing point is kept so resuming lands mid-note. The caller is expected
// to pause playback around the operation.
func (s *Sequencer) Seek(target int) {
	if target < 0 {
		target = 0
	}
	s.muted = true
	s.tempo = s.engine.DefaultTempo
	for _, t := range s.tracks {
		t.Reset(s.engine.ExtendsNotes)
		elapsed := 0
		steps := 0
		for !t.Stopped && elapsed < target {
			s.exec(t)
			if t.Delay > 0 {
				elapsed += t.Delay
				t.Delay = 0
			}
			if steps++; steps > seekBurstLimit {
				s.log.Error("seek replay did not advance; halting track", "track", t.Index)
				t.Stopped = true
			}
		}
		if elapsed > target {
			// Overshoot becomes the remaining in-progress delay. The +1
			// accounts for the tick loop decrementing before it executes,
			// so the interrupted command lands on the same tick it would
			// have under linear playback.
			t.Delay = elapsed - target + 1
		}
		t.notes = t.notes[:0]
		s.mixer.SilenceAll()
	}
	s.position = target
	s.muted = false
}

// TrackState is the per-track slice of a state snapshot.
type TrackState struct {
	Offset    int
	Delay     int
	Voice     int
	VoiceName string
	ModDepth  int
	Volume    int
	Pan       int
	Pitch     int
	Stopped   bool
	Keys      []int
}

// TrackSnapshot reports the current observable state of one track.
func (s *Sequencer) TrackSnapshot(i int) TrackState {
	t := s.tracks[i]
	offset := 0
	seq := &s.song.Tracks[t.Index]
	if t.Cursor < len(seq.Events) {
		offset = seq.Events[t.Cursor].Offset
	} else if n := len(seq.Events); n > 0 {
		offset = seq.Events[n-1].Offset
	}
	return TrackState{
		Offset:    offset,
		Delay:     t.Delay,
		Voice:     t.Voice,
		VoiceName: s.song.Voices.DisplayName(t.Voice),
		ModDepth:  t.ModDepth,
		Volume:    t.CurrentVolume(),
		Pan:       t.CurrentPan(),
		Pitch:     t.PitchOffset(),
		Stopped:   t.Stopped,
		Keys:      s.mixer.TrackKeys(t.Index),
	}
}
