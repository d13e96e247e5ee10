package sequencer

import "github.com/HC1-1/GBAMusicStudio/internal/song"

// dispatch resolves (voice, key) against the song's voice table and asks the
// mixer for a channel. Lookup failures are recoverable: they are logged and
// produce no sound, leaving the track otherwise untouched. Drivers without
// native envelope data get the fixed maximal envelope.
func (s *Sequencer) dispatch(t *Track, key, velocity, duration int) Channel {
	if s.muted {
		return nil
	}
	v, sounding, err := s.song.Voices.Lookup(t.Voice, key)
	if err != nil {
		s.log.Warn("voice lookup failed, note dropped",
			"track", t.Index, "voice", t.Voice, "key", key, "err", err)
		return nil
	}
	env := v.ADSR
	if !s.engine.NativeEnvelopes {
		env = song.MaxADSR
	}
	return s.mixer.NewNote(NoteRequest{
		Track:       t.Index,
		Key:         key,
		SoundingKey: sounding,
		Velocity:    clamp(velocity, 0, 127),
		Duration:    duration,
		Priority:    t.Priority,
		Volume:      t.CurrentVolume(),
		Pan:         t.CurrentPan(),
		Pitch:       t.PitchOffset(),
		ADSR:        env,
		Voice:       v,
	})
}
