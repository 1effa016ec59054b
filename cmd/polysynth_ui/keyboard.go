package main

import (
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
)

// Two tracker-style piano rows: Z to period with the home row as black keys,
// then Q to P an octave up with the digit row as black keys.
var keyPitches = map[ebiten.Key]int{
	ebiten.KeyZ:      12,
	ebiten.KeyS:      13,
	ebiten.KeyX:      14,
	ebiten.KeyD:      15,
	ebiten.KeyC:      16,
	ebiten.KeyV:      17,
	ebiten.KeyG:      18,
	ebiten.KeyB:      19,
	ebiten.KeyH:      20,
	ebiten.KeyN:      21,
	ebiten.KeyJ:      22,
	ebiten.KeyM:      23,
	ebiten.KeyComma:  24,
	ebiten.KeyL:      25,
	ebiten.KeyPeriod: 26,

	ebiten.KeyQ:      24,
	ebiten.KeyDigit2: 25,
	ebiten.KeyW:      26,
	ebiten.KeyDigit3: 27,
	ebiten.KeyE:      28,
	ebiten.KeyR:      29,
	ebiten.KeyDigit5: 30,
	ebiten.KeyT:      31,
	ebiten.KeyDigit6: 32,
	ebiten.KeyY:      33,
	ebiten.KeyDigit7: 34,
	ebiten.KeyU:      35,
	ebiten.KeyI:      36,
	ebiten.KeyDigit9: 37,
	ebiten.KeyO:      38,
	ebiten.KeyDigit0: 39,
	ebiten.KeyP:      40,
}

const (
	keyboardOffset = 24 // Z plays pitch 36, C3
	octaveMin      = -3
	octaveMax      = 3
)

func pitchForKey(k ebiten.Key, octave int) (int, bool) {
	p, ok := keyPitches[k]
	if !ok {
		return 0, false
	}
	return p + keyboardOffset + 12*octave, true
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// pitchName names a pitch index, A4 being 57.
func pitchName(p int) string {
	n := p + 12
	octave := n/12 - 1
	if n < 0 {
		octave = (n-11)/12 - 1
	}
	return noteNames[((n%12)+12)%12] + strconv.Itoa(octave)
}

