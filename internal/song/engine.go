package song

import "fmt"

// FrameRate is the AGB frame clock in Hz; the sequencer executes one frame of
// musical time per TimeBarrier period at this rate.
const FrameRate = 59.7275

type EngineKind int

const (
	// EngineM4A models the mp2k ("sappy") driver: native per-voice ADSR,
	// up to 16 tracks, no note extension.
	EngineM4A EngineKind = iota
	// EngineMLSS models the Mario & Luigi driver: 8 tracks, no envelope
	// data of its own, and gapless same-key note extension.
	EngineMLSS
)

// Engine describes the fixed playback parameters of one driver variant.
type Engine struct {
	Kind            EngineKind
	TrackLimit      int
	DefaultTempo    int
	TickThreshold   int // tempo accumulator units per musical tick
	NativeEnvelopes bool
	ExtendsNotes    bool
}

func (k EngineKind) Descriptor() Engine {
	switch k {
	case EngineMLSS:
		return Engine{
			Kind:          EngineMLSS,
			TrackLimit:    8,
			DefaultTempo:  120,
			TickThreshold: 75,
			ExtendsNotes:  true,
		}
	default:
		return Engine{
			Kind:            EngineM4A,
			TrackLimit:      16,
			DefaultTempo:    150,
			TickThreshold:   150,
			NativeEnvelopes: true,
		}
	}
}

func (k EngineKind) String() string {
	switch k {
	case EngineM4A:
		return "m4a"
	case EngineMLSS:
		return "mlss"
	}
	return fmt.Sprintf("engine(%d)", int(k))
}

func parseEngineKind(s string) (EngineKind, error) {
	switch s {
	case "m4a":
		return EngineM4A, nil
	case "mlss":
		return EngineMLSS, nil
	}
	return 0, fmt.Errorf("unknown engine %q", s)
}
