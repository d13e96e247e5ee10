package gbamusic

import (
	"encoding/binary"
	"testing"

	intsong "github.com/HC1-1/GBAMusicStudio/internal/song"
)

func hasSignal(buf []float32) bool {
	for _, s := range buf {
		if s != 0 {
			return true
		}
	}
	return false
}

func TestRenderSamplesEndsWithSong(t *testing.T) {
	out := RenderSamples(shortSong(), 32000, 5.0)
	if len(out) == 0 {
		t.Fatal("no samples rendered")
	}
	if len(out) >= 32000*2*5 {
		t.Fatalf("render did not stop at song end: %d samples", len(out))
	}
	if !hasSignal(out) {
		t.Fatal("expected audible output")
	}
}

func TestRenderSamplesCapsLoopingSong(t *testing.T) {
	sng := &intsong.Song{
		Name:       "loop",
		Engine:     intsong.EngineM4A,
		TotalTicks: 4,
		Tracks: []intsong.Sequence{{Events: []intsong.Event{
			{Ticks: 0, Offset: 0, Cmd: intsong.Command{Kind: intsong.CmdVoice, Value: 0}},
			{Ticks: 0, Offset: 2, Cmd: intsong.Command{Kind: intsong.CmdNote, Key: 60, Velocity: 100, Duration: 4}},
			{Ticks: 0, Offset: 3, Cmd: intsong.Command{Kind: intsong.CmdRest, Duration: 4}},
			{Ticks: 4, Offset: 4, Cmd: intsong.Command{Kind: intsong.CmdJump, Target: 0}},
		}}},
		Voices: intsong.VoiceTable{Voices: []intsong.Voice{
			{Category: intsong.VoiceSquare1, Duty: 0.5, ADSR: intsong.MaxADSR},
		}},
	}
	maxSamples := int(float64(16000)*0.2) * 2
	out := RenderSamples(sng, 16000, 0.2)
	if len(out) != maxSamples {
		t.Fatalf("looping render = %d samples, want the %d cap", len(out), maxSamples)
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -0.25}
	wav := EncodeWAVFloat32LE(samples, 48000, 2)
	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("wav length = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint16(wav[20:]); got != 3 {
		t.Fatalf("format tag = %d, want 3 (IEEE float)", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 48000 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(samples)*4) {
		t.Fatalf("data size = %d", got)
	}
}
