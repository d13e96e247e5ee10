package gbamusic

import intseq "github.com/HC1-1/GBAMusicStudio/internal/sequencer"

// Snapshot is a point-in-time view of playback for display layers. It is a
// copy; mutating it has no effect on the player.
type Snapshot struct {
	State      State
	Tempo      int
	Position   int
	TotalTicks int
	Tracks     []intseq.TrackState
}

func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := Snapshot{
		State:    p.state,
		Tempo:    p.seq.Tempo(),
		Position: p.seq.Position(),
	}
	if p.song != nil {
		snap.TotalTicks = p.song.TotalTicks
	}
	for i := 0; i < p.seq.TrackCount(); i++ {
		snap.Tracks = append(snap.Tracks, p.seq.TrackSnapshot(i))
	}
	return snap
}
