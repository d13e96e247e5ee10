// Package audio connects the frame-driven render loop to the platform audio
// device. The render loop pushes stereo float32 frames; the device pulls at
// its own pace through a ring buffer, substituting silence on underrun.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// ring is a bounded float32 ring buffer. Pushing past capacity drops the
// oldest samples so the producer never blocks the render loop.
type ring struct {
	mu  sync.Mutex
	buf []float32
	r   int
	w   int
	n   int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float32, capacity)}
}

func (q *ring) push(samples []float32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range samples {
		if q.n == len(q.buf) {
			q.r = (q.r + 1) % len(q.buf)
			q.n--
		}
		q.buf[q.w] = s
		q.w = (q.w + 1) % len(q.buf)
		q.n++
	}
}

// pop fills dst, zero-padding when the ring runs dry.
func (q *ring) pop(dst []float32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range dst {
		if q.n == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = q.buf[q.r]
		q.r = (q.r + 1) % len(q.buf)
		q.n--
	}
}

func (q *ring) reset() {
	q.mu.Lock()
	q.r, q.w, q.n = 0, 0, 0
	q.mu.Unlock()
}

// ringReader adapts the ring to the device's pull side, converting float32
// samples to the little-endian byte stream the context expects.
type ringReader struct {
	ring *ring
	buf  []float32
}

func (r *ringReader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.ring.pop(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

// Device is the realtime audio output.
type Device struct {
	player *ebitaudio.Player
	ring   *ring
}

// NewDevice opens a stereo float32 output at the given sample rate, buffering
// about 200ms against scheduler jitter.
func NewDevice(sampleRate int) (*Device, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	rb := newRing(sampleRate * 2 / 5)
	pl, err := ctx.NewPlayerF32(&ringReader{ring: rb})
	if err != nil {
		return nil, err
	}
	pl.Play()
	return &Device{player: pl, ring: rb}, nil
}

// Push queues one rendered block of interleaved stereo samples.
func (d *Device) Push(samples []float32) {
	d.ring.push(samples)
}

// Flush discards queued samples, for an immediate stop or seek.
func (d *Device) Flush() {
	d.ring.reset()
}

func (d *Device) Close() error {
	d.player.Pause()
	d.ring.reset()
	return d.player.Close()
}
