package song

import "fmt"

type CommandKind int

const (
	CmdNote CommandKind = iota + 1
	CmdRest
	CmdVoice
	CmdVolume
	CmdPan
	CmdBend
	CmdBendRange
	CmdModDepth
	CmdModType
	CmdTune
	CmdLFOSpeed
	CmdLFODelay
	CmdTempo
	CmdKeyShift
	CmdPriority
	CmdJump
	CmdCall
	CmdReturn
	CmdFinish
	CmdEndOfTie
	CmdEchoVolume
	CmdEchoLength
)

// Command is one decoded track instruction. Kind selects which fields are
// meaningful: notes use Key/Velocity/Duration, rests use Duration, jump and
// call use Target (a source offset), everything else uses Value.
type Command struct {
	Kind     CommandKind `yaml:"kind"`
	Key      int         `yaml:"key,omitempty"`
	Velocity int         `yaml:"velocity,omitempty"`
	Duration int         `yaml:"duration,omitempty"`
	Value    int         `yaml:"value,omitempty"`
	Target   int         `yaml:"target,omitempty"`
}

var commandNames = map[CommandKind]string{
	CmdNote:       "note",
	CmdRest:       "rest",
	CmdVoice:      "voice",
	CmdVolume:     "volume",
	CmdPan:        "pan",
	CmdBend:       "bend",
	CmdBendRange:  "bend-range",
	CmdModDepth:   "mod-depth",
	CmdModType:    "mod-type",
	CmdTune:       "tune",
	CmdLFOSpeed:   "lfo-speed",
	CmdLFODelay:   "lfo-delay",
	CmdTempo:      "tempo",
	CmdKeyShift:   "key-shift",
	CmdPriority:   "priority",
	CmdJump:       "jump",
	CmdCall:       "call",
	CmdReturn:     "return",
	CmdFinish:     "finish",
	CmdEndOfTie:   "end-of-tie",
	CmdEchoVolume: "echo-volume",
	CmdEchoLength: "echo-length",
}

func (k CommandKind) String() string {
	if s, ok := commandNames[k]; ok {
		return s
	}
	return fmt.Sprintf("command(%d)", int(k))
}

func parseCommandKind(s string) (CommandKind, error) {
	for k, name := range commandNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command kind %q", s)
}
