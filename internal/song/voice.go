package song

import (
	"errors"
	"fmt"
)

// ErrNoVoice marks a (voice id, key) pair the voice table cannot resolve.
var ErrNoVoice = errors.New("no such voice")

type VoiceCategory int

const (
	// VoiceDirect plays a PCM sample, optionally at a fixed frequency.
	VoiceDirect VoiceCategory = iota + 1
	VoiceSquare1
	VoiceSquare2
	VoiceWave
	VoiceNoise
	// VoiceKeySplit routes each key to a sub-voice.
	VoiceKeySplit
	// VoiceDrum routes each key to a sub-voice and remaps the sounding key
	// to the sub-voice's root key.
	VoiceDrum
)

// ADSR holds GBA-style envelope parameters: attack and release are per-frame
// rates, decay is a per-frame multiplier step, sustain is a level, all 0-255.
type ADSR struct {
	Attack  int `yaml:"attack"`
	Decay   int `yaml:"decay"`
	Sustain int `yaml:"sustain"`
	Release int `yaml:"release"`
}

// MaxADSR is the envelope used by drivers without native envelope data:
// instant full volume, instant cut.
var MaxADSR = ADSR{Attack: 255, Decay: 0, Sustain: 255, Release: 0}

// Sample is PCM data for a direct voice.
type Sample struct {
	Rate    int       `yaml:"rate"`
	Loop    bool      `yaml:"loop,omitempty"`
	LoopPos int       `yaml:"loop_pos,omitempty"`
	Data    []float32 `yaml:"data,flow"`
}

type Voice struct {
	Name     string         `yaml:"name,omitempty"`
	Category VoiceCategory  `yaml:"category"`
	ADSR     ADSR           `yaml:"adsr,omitempty"`
	Fixed    bool           `yaml:"fixed,omitempty"`
	RootKey  int            `yaml:"root_key,omitempty"`
	Duty     float64        `yaml:"duty,omitempty"`
	Wave     []byte         `yaml:"wave,flow,omitempty"`
	Pattern  int            `yaml:"pattern,omitempty"`
	Sample   *Sample        `yaml:"sample,omitempty"`
	Split    map[int]*Voice `yaml:"split,omitempty"`
}

type VoiceTable struct {
	Voices []Voice `yaml:"table"`
}

// Lookup resolves (voice id, key) to the concrete voice to sound and the key
// it should sound at. Key-split and drum voices indirect through their Split
// map; drum voices additionally remap the sounding key to the sub-voice's
// root key. Failures are recoverable: the dispatcher logs and produces no
// sound.
func (t *VoiceTable) Lookup(id, key int) (*Voice, int, error) {
	if id < 0 || id >= len(t.Voices) {
		return nil, 0, fmt.Errorf("%w: id %d out of range (table has %d)", ErrNoVoice, id, len(t.Voices))
	}
	v := &t.Voices[id]
	switch v.Category {
	case VoiceKeySplit, VoiceDrum:
		sub, ok := v.Split[key]
		if !ok || sub == nil {
			return nil, 0, fmt.Errorf("%w: voice %d has no entry for key %d", ErrNoVoice, id, key)
		}
		sounding := key
		if v.Category == VoiceDrum {
			sounding = sub.RootKey
		}
		return sub, sounding, nil
	case VoiceDirect, VoiceSquare1, VoiceSquare2, VoiceWave, VoiceNoise:
		return v, key, nil
	}
	return nil, 0, fmt.Errorf("%w: voice %d has unknown category %d", ErrNoVoice, id, int(v.Category))
}

// DisplayName is the name shown in track snapshots.
func (t *VoiceTable) DisplayName(id int) string {
	if id < 0 || id >= len(t.Voices) {
		return ""
	}
	return t.Voices[id].Name
}
