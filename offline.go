package gbamusic

import (
	"encoding/binary"
	"math"

	intmixer "github.com/HC1-1/GBAMusicStudio/internal/mixer"
	intseq "github.com/HC1-1/GBAMusicStudio/internal/sequencer"
	intsong "github.com/HC1-1/GBAMusicStudio/internal/song"
)

// RenderSamples plays the song offline, faster than realtime, and returns
// interleaved stereo float32 samples. Rendering stops when the song ends or
// maxSeconds elapse, whichever comes first; a looping song always runs to
// the cap.
func RenderSamples(sng *intsong.Song, sampleRate int, maxSeconds float64) []float32 {
	mix := intmixer.New(sampleRate, sng.Reverb)
	mix.SetMasterGain(defaultGain)
	seq := intseq.New(mix, nil)
	seq.SetSong(sng)

	frame := make([]float32, framesPerUpdate(sampleRate)*2)
	maxSamples := int(float64(sampleRate)*maxSeconds) * 2
	threshold := seq.Engine().TickThreshold
	tempoStack := 0
	var out []float32
	for len(out) < maxSamples {
		ended := false
		tempoStack += seq.Tempo()
		for threshold > 0 && tempoStack >= threshold {
			tempoStack -= threshold
			if seq.Tick() {
				ended = true
				break
			}
		}
		mix.RenderFrame(frame)
		out = append(out, frame...)
		if ended {
			break
		}
	}
	if len(out) > maxSamples {
		out = out[:maxSamples]
	}
	return out
}

// EncodeWAVFloat32LE wraps samples in a WAV container (IEEE float format).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
