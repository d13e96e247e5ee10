package midiexport

import (
	"testing"

	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

func exportSong() *song.Song {
	return &song.Song{
		Name:       "export",
		Engine:     song.EngineM4A,
		TotalTicks: 12,
		Tracks: []song.Sequence{{Events: []song.Event{
			{Ticks: 0, Offset: 0, Cmd: song.Command{Kind: song.CmdVoice, Value: 3}},
			{Ticks: 0, Offset: 2, Cmd: song.Command{Kind: song.CmdVolume, Value: 90}},
			{Ticks: 0, Offset: 4, Cmd: song.Command{Kind: song.CmdNote, Key: 60, Velocity: 100, Duration: 4}},
			{Ticks: 4, Offset: 6, Cmd: song.Command{Kind: song.CmdNote, Key: 64, Velocity: 100, Duration: -1}},
			{Ticks: 8, Offset: 8, Cmd: song.Command{Kind: song.CmdEndOfTie, Key: 64}},
			{Ticks: 8, Offset: 10, Cmd: song.Command{Kind: song.CmdFinish}},
		}}},
	}
}

func TestExportNotePairs(t *testing.T) {
	s, err := Export(exportSong())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("track count = %d, want 1", len(s.Tracks))
	}
	type noteEvent struct {
		tick uint32
		key  uint8
		on   bool
	}
	var notes []noteEvent
	var tick uint32
	var tempo float64
	for _, ev := range s.Tracks[0] {
		tick += ev.Delta
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel):
			notes = append(notes, noteEvent{tick, key, true})
		case ev.Message.GetNoteOff(&ch, &key, &vel):
			notes = append(notes, noteEvent{tick, key, false})
		case ev.Message.GetMetaTempo(&tempo):
		}
	}
	if tempo != 75 {
		t.Fatalf("tempo = %v BPM, want 75", tempo)
	}
	want := []noteEvent{
		{0, 60, true},
		{4, 60, false},
		{4, 64, true},
		{8, 64, false},
	}
	if len(notes) != len(want) {
		t.Fatalf("note events = %+v, want %+v", notes, want)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Fatalf("note[%d] = %+v, want %+v", i, notes[i], want[i])
		}
	}
}

func TestExportEmptySongFails(t *testing.T) {
	if _, err := Export(&song.Song{}); err == nil {
		t.Fatal("expected an error for a song with no tracks")
	}
}
