// Package song holds the parsed data model the sequencer plays back: per-track
// command sequences with absolute-tick and source-offset annotations, the voice
// table, and the engine descriptors of the two supported sound drivers.
package song

import (
	"errors"
	"fmt"
)

// ErrBadOffset marks a jump or call target that does not exist in its
// sequence.
var ErrBadOffset = errors.New("no event at offset")

// Event is one scheduled command. Ticks is the absolute musical tick the
// command lands on when playback runs linearly; Offset is the stable source
// offset used as a jump/call target. Within one sequence Ticks is
// non-decreasing and offsets are unique.
type Event struct {
	Ticks  int     `yaml:"at"`
	Offset int     `yaml:"off"`
	Cmd    Command `yaml:"cmd"`
}

// Sequence is the ordered command stream of a single track.
type Sequence struct {
	Events []Event `yaml:"events"`
}

// IndexOfOffset resolves a jump/call target to an event index, -1 when the
// offset does not exist in this sequence.
func (s *Sequence) IndexOfOffset(offset int) int {
	for i := range s.Events {
		if s.Events[i].Offset == offset {
			return i
		}
	}
	return -1
}

// Resolve is IndexOfOffset with a diagnosable error for the fault path.
func (s *Sequence) Resolve(offset int) (int, error) {
	if i := s.IndexOfOffset(offset); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w %#x", ErrBadOffset, offset)
}

// LastTick returns the absolute tick of the final event, -1 for an empty
// sequence.
func (s *Sequence) LastTick() int {
	if len(s.Events) == 0 {
		return -1
	}
	return s.Events[len(s.Events)-1].Ticks
}

type Song struct {
	Name       string     `yaml:"name,omitempty"`
	Engine     EngineKind `yaml:"engine"`
	TotalTicks int        `yaml:"total_ticks"`
	Reverb     int        `yaml:"reverb,omitempty"`
	Tracks     []Sequence `yaml:"tracks"`
	Voices     VoiceTable `yaml:"voices"`
}

// AuthoritativeTrack picks the track that anchors the global position
// counter: the first one whose last event sits on the song's final tick
// (TotalTicks-1). Falls back to the longest track when no track lands
// exactly on the final tick, and -1 for a song with no tracks.
func (s *Song) AuthoritativeTrack() int {
	return s.AuthoritativeTrackWithin(len(s.Tracks))
}

// AuthoritativeTrackWithin restricts the selection to the first limit
// tracks, for engines whose channel count truncates the track array. The
// anchor must be a track that actually plays.
func (s *Song) AuthoritativeTrackWithin(limit int) int {
	if limit > len(s.Tracks) {
		limit = len(s.Tracks)
	}
	best, bestTick := -1, -1
	for i := 0; i < limit; i++ {
		last := s.Tracks[i].LastTick()
		if last == s.TotalTicks-1 {
			return i
		}
		if last > bestTick {
			best, bestTick = i, last
		}
	}
	return best
}
