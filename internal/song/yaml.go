package song

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Songs are stored on disk as YAML documents of the whole data model. Enum
// fields marshal as their string names so the files stay hand-editable.

func Load(path string) (*Song, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func Decode(b []byte) (*Song, error) {
	var s Song
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode song: %w", err)
	}
	return &s, nil
}

func Save(path string, s *Song) error {
	b, err := Encode(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func Encode(s *Song) ([]byte, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode song: %w", err)
	}
	return b, nil
}

func (k CommandKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *CommandKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseCommandKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k EngineKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *EngineKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseEngineKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

var voiceCategoryNames = map[VoiceCategory]string{
	VoiceDirect:   "direct",
	VoiceSquare1:  "square1",
	VoiceSquare2:  "square2",
	VoiceWave:     "wave",
	VoiceNoise:    "noise",
	VoiceKeySplit: "keysplit",
	VoiceDrum:     "drum",
}

func (c VoiceCategory) String() string {
	if s, ok := voiceCategoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c VoiceCategory) MarshalYAML() (any, error) { return c.String(), nil }

func (c *VoiceCategory) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	for k, name := range voiceCategoryNames {
		if name == s {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown voice category %q", s)
}
