package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	gbamusic "github.com/HC1-1/GBAMusicStudio"
	"github.com/HC1-1/GBAMusicStudio/internal/audio"
	"github.com/HC1-1/GBAMusicStudio/internal/midiexport"
	"github.com/HC1-1/GBAMusicStudio/internal/song"
)

func main() {
	var (
		songPath   = flag.String("song", "", "path to a song YAML file")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		seek       = flag.Int("seek", 0, "start playback at this tick")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		wavPath    = flag.String("wav", "", "render offline to a WAV file instead of playing")
		wavSecs    = flag.Float64("wav-seconds", 300, "offline render length cap in seconds")
		midiPath   = flag.String("midi", "", "export to a standard MIDI file instead of playing")
		engine     = flag.String("engine", "", "force driver model: m4a or mlss (default: song's own)")
	)
	flag.Parse()

	if *songPath == "" {
		log.Fatal("-song is required")
	}
	sng, err := song.Load(*songPath)
	if err != nil {
		log.Fatal(err)
	}
	switch *engine {
	case "":
	case "m4a":
		sng.Engine = song.EngineM4A
	case "mlss":
		sng.Engine = song.EngineMLSS
	default:
		log.Fatalf("unknown engine %q (want m4a or mlss)", *engine)
	}
	fmt.Printf("%s: engine %s, %d tracks, %d ticks\n",
		sng.Name, sng.Engine, len(sng.Tracks), sng.TotalTicks)

	if *midiPath != "" {
		if err := midiexport.ExportFile(sng, *midiPath); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", *midiPath)
		return
	}
	if *wavPath != "" {
		samples := gbamusic.RenderSamples(sng, *sampleRate, *wavSecs)
		wav := gbamusic.EncodeWAVFloat32LE(samples, *sampleRate, 2)
		if err := os.WriteFile(*wavPath, wav, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", *wavPath)
		return
	}

	device, err := audio.NewDevice(*sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	defer device.Close()

	pl, err := gbamusic.NewPlayer(
		gbamusic.WithSampleRate(*sampleRate),
		gbamusic.WithAudioOutput(device),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer pl.ShutDown()

	pl.SetSong(sng)
	pl.SetMasterVolume(*volume)
	events := pl.Watch()
	if err := pl.Play(); err != nil {
		log.Fatal(err)
	}
	if *seek > 0 {
		pl.SetPosition(*seek)
	}
	for event := range events {
		if event.Kind == gbamusic.EventSongEnded {
			fmt.Println("playback completed")
			return
		}
	}
}
