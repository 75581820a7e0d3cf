package emulator

func readBitN(v uint16, offset uint8) bool {
	return v&(1<<offset) > 0
}

func writeBitN(v uint16, offset uint8, set bool) uint16 {
	if set {
		return v | 1<<offset
	}
	return v &^ (1 << offset)
}

// bgr555ToRGBA expands a 15 bit palette entry to 8 bits per channel
func bgr555ToRGBA(c uint16) (r, g, b uint8) {
	expand := func(v uint16) uint8 {
		v &= 0x1F
		return uint8(v<<3 | v>>2)
	}
	return expand(c), expand(c >> 5), expand(c >> 10)
}
