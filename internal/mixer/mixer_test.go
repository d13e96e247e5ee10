package mixer

import (
	"log/slog"
	"testing"

	"github.com/HC1-1/GBAMusicStudio/internal/sequencer"
	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

func squareRequest(track, key, priority int) sequencer.NoteRequest {
	return sequencer.NoteRequest{
		Track:       track,
		Key:         key,
		SoundingKey: key,
		Velocity:    127,
		Duration:    4,
		Priority:    priority,
		Volume:      127,
		Pan:         0,
		ADSR:        song.MaxADSR,
		Voice:       &song.Voice{Category: song.VoiceSquare1, Duty: 0.5},
	}
}

func hasSignal(buf []float32) bool {
	for _, s := range buf {
		if s != 0 {
			return true
		}
	}
	return false
}

func TestSquareNoteProducesOutput(t *testing.T) {
	m := New(48000, 0)
	ch := m.NewNote(squareRequest(0, 69, 0))
	if ch == nil {
		t.Fatal("expected a channel")
	}
	buf := make([]float32, 512)
	m.RenderFrame(buf)
	if !hasSignal(buf) {
		t.Fatal("expected non-silent output")
	}
	keys := m.TrackKeys(0)
	if len(keys) != 1 || keys[0] != 69 {
		t.Fatalf("TrackKeys = %v, want [69]", keys)
	}
}

func TestReleaseDecaysToSilence(t *testing.T) {
	m := New(48000, 0)
	ch := m.NewNote(squareRequest(0, 69, 0))
	ch.Release()
	buf := make([]float32, 4096)
	m.RenderFrame(buf)
	if !m.Silent() {
		t.Fatal("expected silence after instant-cut release")
	}
}

func TestPSGStealingRespectsPriority(t *testing.T) {
	m := New(48000, 0)
	first := m.NewNote(squareRequest(0, 60, 10))
	if first == nil {
		t.Fatal("expected a channel")
	}
	if got := m.NewNote(squareRequest(1, 62, 5)); got != nil {
		t.Fatal("lower-priority request should be refused")
	}
	second := m.NewNote(squareRequest(1, 64, 10))
	if second == nil {
		t.Fatal("equal-priority request should steal the slot")
	}
	if keys := m.TrackKeys(0); len(keys) != 0 {
		t.Fatalf("stolen track still reports keys %v", keys)
	}
}

func TestDirectPoolRefusesLowerPriority(t *testing.T) {
	m := New(48000, 0)
	req := squareRequest(0, 60, 5)
	req.Voice = &song.Voice{
		Category: song.VoiceDirect,
		Sample:   &song.Sample{Rate: 48000, Loop: true, Data: []float32{0.5, -0.5}},
	}
	for i := 0; i < defaultDirectChannels; i++ {
		req.Key = 60 + i
		req.SoundingKey = req.Key
		if m.NewNote(req) == nil {
			t.Fatalf("allocation %d refused", i)
		}
	}
	low := req
	low.Priority = 1
	if m.NewNote(low) != nil {
		t.Fatal("lower-priority request should not steal a full pool")
	}
	if m.NewNote(req) == nil {
		t.Fatal("equal-priority request should steal the oldest channel")
	}
}

func TestSilenceAllCutsImmediately(t *testing.T) {
	m := New(48000, 40)
	m.NewNote(squareRequest(0, 69, 0))
	buf := make([]float32, 512)
	m.RenderFrame(buf)
	m.SilenceAll()
	if !m.Silent() {
		t.Fatal("expected silence after SilenceAll")
	}
	m.RenderFrame(buf)
	if hasSignal(buf) {
		t.Fatal("expected all-zero output after SilenceAll")
	}
}

func TestPanMovesSignalBetweenSides(t *testing.T) {
	m := New(48000, 0)
	req := squareRequest(3, 69, 0)
	req.Pan = -64
	m.NewNote(req)
	buf := make([]float32, 512)
	m.RenderFrame(buf)
	var left, right bool
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] != 0 {
			left = true
		}
		if buf[i+1] != 0 {
			right = true
		}
	}
	if !left || right {
		t.Fatalf("hard-left pan: left=%v right=%v", left, right)
	}
	m.UpdateTrack(3, 127, 63, 0)
	m.RenderFrame(buf)
	right = false
	for i := 1; i < len(buf); i += 2 {
		if buf[i] != 0 {
			right = true
		}
	}
	if !right {
		t.Fatal("expected signal on the right after pan update")
	}
}

func TestOneShotSampleEnds(t *testing.T) {
	m := New(48000, 0)
	data := make([]float32, 100)
	for i := range data {
		data[i] = 1
	}
	req := squareRequest(0, 60, 0)
	req.Voice = &song.Voice{
		Category: song.VoiceDirect,
		Fixed:    true,
		Sample:   &song.Sample{Rate: 48000, Data: data},
	}
	ch := m.NewNote(req)
	if ch == nil {
		t.Fatal("expected a channel")
	}
	buf := make([]float32, 512)
	m.RenderFrame(buf)
	if !hasSignal(buf) {
		t.Fatal("expected sample output")
	}
	if !m.Silent() {
		t.Fatal("one-shot sample should end after its data runs out")
	}
	if ch.Active() {
		t.Fatal("channel should be inactive after the sample ends")
	}
}

func peak(buf []float32) float32 {
	var p float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	return p
}

func TestReverbTailDecays(t *testing.T) {
	m := New(48000, 64)
	ch := m.NewNote(squareRequest(0, 69, 0))
	if ch == nil {
		t.Fatal("expected a channel")
	}
	buf := make([]float32, 8192)
	m.RenderFrame(buf)
	ch.Release()

	early := make([]float32, 4096)
	m.RenderFrame(early)
	if peak(early) == 0 {
		t.Fatal("expected a reverb tail after release")
	}
	late := make([]float32, 4096)
	for i := 0; i < 8; i++ {
		m.RenderFrame(late)
	}
	if peak(late) >= peak(early)/2 {
		t.Fatalf("tail did not decay: early peak %v, late peak %v", peak(early), peak(late))
	}
}

// Two tracks share the single square1 generator. When track 1 steals the
// slot, track 0's scheduled note-off must not cut the new owner.
func TestNoteOffIgnoresStolenChannel(t *testing.T) {
	sng := &song.Song{
		Engine:     song.EngineM4A,
		TotalTicks: 13,
		Voices: song.VoiceTable{Voices: []song.Voice{
			{Category: song.VoiceSquare1, Duty: 0.5, ADSR: song.MaxADSR},
		}},
		Tracks: []song.Sequence{
			{Events: []song.Event{
				{Ticks: 0, Offset: 0, Cmd: song.Command{Kind: song.CmdVoice, Value: 0}},
				{Ticks: 0, Offset: 1, Cmd: song.Command{Kind: song.CmdNote, Key: 60, Velocity: 100, Duration: 6}},
				{Ticks: 0, Offset: 2, Cmd: song.Command{Kind: song.CmdRest, Duration: 12}},
				{Ticks: 12, Offset: 3, Cmd: song.Command{Kind: song.CmdFinish}},
			}},
			{Events: []song.Event{
				{Ticks: 0, Offset: 0x10, Cmd: song.Command{Kind: song.CmdVoice, Value: 0}},
				{Ticks: 0, Offset: 0x11, Cmd: song.Command{Kind: song.CmdRest, Duration: 2}},
				{Ticks: 2, Offset: 0x12, Cmd: song.Command{Kind: song.CmdNote, Key: 64, Velocity: 100, Duration: 8}},
				{Ticks: 2, Offset: 0x13, Cmd: song.Command{Kind: song.CmdRest, Duration: 10}},
				{Ticks: 12, Offset: 0x14, Cmd: song.Command{Kind: song.CmdFinish}},
			}},
		},
	}
	m := New(32000, 0)
	s := sequencer.New(m, slog.Default())
	s.SetSong(sng)

	buf := make([]float32, 1024)
	for i := 0; i < 9; i++ {
		s.Tick()
		m.RenderFrame(buf)
	}
	// Track 0's note expired at tick 7, well after track 1 took the slot.
	if keys := m.TrackKeys(1); len(keys) != 1 || keys[0] != 64 {
		t.Fatalf("TrackKeys(1) = %v, want [64]: the stolen slot was cut by the old owner's note-off", keys)
	}
	if keys := m.TrackKeys(0); len(keys) != 0 {
		t.Fatalf("TrackKeys(0) = %v, want none after the slot was stolen", keys)
	}
}
