package mixer

// reverb is a Schroeder-style reverb: four comb filters into two allpass
// filters, mixed back by the song's wet amount. It stands in for the GBA
// driver's frame-delayed echo buffer.
type reverb struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
	wet     float32
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

func newReverb(sampleRate int, wet float32) *reverb {
	base := sampleRate / 30
	if base < 10 {
		base = 10
	}
	if wet < 0 {
		wet = 0
	}
	if wet > 1 {
		wet = 1
	}
	r := &reverb{wet: wet}
	// Prime-ish delay ratios to avoid resonances.
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = combFilter{buf: make([]float32, combLens[i]), fb: 0.78}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		n := apLens[i]
		if n < 1 {
			n = 1
		}
		r.allpass[i] = allpassFilter{buf: make([]float32, n), fb: 0.5}
	}
	return r
}

func (r *reverb) process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return l + out*r.wet, r2 + out*r.wet
}

// reset clears the delay lines so a seek or stop leaves no tail.
func (r *reverb) reset() {
	for i := range r.combs {
		clearF32(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clearF32(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func clearF32(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
