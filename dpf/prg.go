//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dpf

// Tweak constants separating the four PRG output streams. The dealer
// and the compute parties interoperate at the bit level, so these
// values and the smix mixing rounds are fixed protocol constants.
const (
	tweakL  = 0xa5a5a5a5a5a5a5a5
	tweakR  = 0xc3c3c3c3c3c3c3c3
	tweakTL = 0xb4b4b4b4b4b4b4b4
	tweakTR = 0xd2d2d2d2d2d2d2d2
)

// smix is the splitmix64 finalizer.
func smix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// expand computes the tree PRG G(s), deriving the left and right
// child seeds and control bits of a node.
func expand(s uint64) (sL, sR uint64, tL, tR bool) {
	sL = smix(s ^ tweakL)
	sR = smix(s ^ tweakR)
	tL = smix(s^tweakTL)&1 == 1
	tR = smix(s^tweakTR)&1 == 1
	return
}
