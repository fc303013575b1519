package rosproto

// ReadLength decodes one variable length prefix from the start of data.
// Returns the payload length and the number of prefix bytes consumed.
// The high bits of the first byte select the prefix width: 0xxxxxxx is
// a one byte length, 10 two bytes, 110 three, 1110 four, and 0xF0
// marks a raw four byte big endian length. 0xF8..0xFF are reserved and
// yield ErrPrefixLength. A prefix cut off by the end of the buffer
// yields ErrIncomplete.
func ReadLength(data []byte) (uint32, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrIncomplete
	}
	c := uint32(data[0])
	switch {
	case c&0x80 == 0x00:
		return c, 1, nil
	case c&0xC0 == 0x80:
		if len(data) < 2 {
			return 0, 0, ErrIncomplete
		}
		c &^= 0xC0
		c = c<<8 | uint32(data[1])
		return c, 2, nil
	case c&0xE0 == 0xC0:
		if len(data) < 3 {
			return 0, 0, ErrIncomplete
		}
		c &^= 0xE0
		c = c<<8 | uint32(data[1])
		c = c<<8 | uint32(data[2])
		return c, 3, nil
	case c&0xF0 == 0xE0:
		if len(data) < 4 {
			return 0, 0, ErrIncomplete
		}
		c &^= 0xF0
		c = c<<8 | uint32(data[1])
		c = c<<8 | uint32(data[2])
		c = c<<8 | uint32(data[3])
		return c, 4, nil
	case c&0xF8 == 0xF0:
		if len(data) < 5 {
			return 0, 0, ErrIncomplete
		}
		c = uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
		return c, 5, nil
	}
	return 0, 0, ErrPrefixLength
}
