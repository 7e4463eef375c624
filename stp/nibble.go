package stp

import "math/bits"

// SwapNibbles reverses the order of the low nibbleSz nibbles of value. It is
// used to convert a little-endian-nibble-ordered payload (data or
// timestamp) into the big-endian-nibble value the rest of this package
// works with, and is its own inverse.
func SwapNibbles(value uint64, nibbleSz int) uint64 {
	if nibbleSz <= 0 {
		return 0
	}
	v := bits.ReverseBytes64(value)
	v = ((v & 0xF0F0F0F0F0F0F0F0) >> 4) | ((v & 0x0F0F0F0F0F0F0F0F) << 4)
	return v >> uint(64-4*nibbleSz)
}

// splitByteNibbles returns a byte's two nibbles in decode order: low nibble
// first, then high nibble. Every STP byte stream is nibble-granular with
// the low nibble transmitted first.
func splitByteNibbles(b byte) (low, high byte) {
	return b & 0x0F, b >> 4
}
