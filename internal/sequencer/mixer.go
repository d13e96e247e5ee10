package sequencer

import "github.com/HC1-1/GBAMusicStudio/internal/song"

// Mixer is the external synthesis collaborator. The sequencer decides when a
// note starts and stops and with what parameters; the mixer renders it.
type Mixer interface {
	// NewNote allocates a sounding channel, or nil when the request is
	// refused (voice stealing, no free channel).
	NewNote(req NoteRequest) Channel
	// ReleaseTrack releases every channel owned by the track.
	ReleaseTrack(track int)
	// ReleaseKey releases the track's channels sounding the given key.
	ReleaseKey(track, key int)
	// UpdateTrack pushes current volume/pan/pitch to the track's channels.
	UpdateTrack(track, volume, pan, pitch int)
	// TrackKeys reports the keys currently sounding on a track.
	TrackKeys(track int) []int
	// RenderFrame renders one stereo output frame block into dst.
	RenderFrame(dst []float32)
	// SilenceAll cuts every channel immediately.
	SilenceAll()
	// Silent reports whether no channel is producing output.
	Silent() bool
}

// Channel is an opaque reference to one sounding voice instance. The
// sequencer uses it for note-off scheduling and same-tick tie bookkeeping
// and never inspects mixer internals through it.
type Channel interface {
	Release()
	Extend(ticks int)
	Key() int
	Active() bool
}

// NoteRequest describes one note-on for the mixer. Duration is in musical
// ticks; -1 means the note holds until an explicit end-of-tie. Pitch is in
// 1/64 semitone units.
type NoteRequest struct {
	Track       int
	Key         int
	SoundingKey int
	Velocity    int
	Duration    int
	Priority    int
	Volume      int
	Pan         int
	Pitch       int
	ADSR        song.ADSR
	Voice       *song.Voice
}
