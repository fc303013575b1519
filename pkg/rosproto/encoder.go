package rosproto

import (
	"bytes"
)

// Encoder Encoder
type Encoder struct {
	w *bytes.Buffer
}

// NewEncoder NewEncoder
func NewEncoder() *Encoder {

	return &Encoder{
		w: bytes.NewBuffer([]byte{}),
	}
}

// Bytes Bytes
func (e *Encoder) Bytes() []byte {
	return e.w.Bytes()
}

// Len Len
func (e *Encoder) Len() int {
	return e.w.Len()
}

// WriteLength writes the variable length prefix for a word of n bytes.
func (e *Encoder) WriteLength(n uint32) {
	switch {
	case n <= 0x7F:
		e.w.WriteByte(byte(n))
	case n <= 0x3FFF:
		l := n | 0x8000
		e.w.Write([]byte{byte(l >> 8), byte(l)})
	case n <= 0x1FFFFF:
		l := n | 0xC00000
		e.w.Write([]byte{byte(l >> 16), byte(l >> 8), byte(l)})
	case n <= 0xFFFFFFF:
		l := n | 0xE0000000
		e.w.Write([]byte{byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
	default:
		e.w.Write([]byte{0xF0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	}
}

// WriteWord writes one word as a length prefix followed by the
// concatenated parts.
func (e *Encoder) WriteWord(parts ...[]byte) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	e.WriteLength(uint32(total))
	for _, p := range parts {
		e.w.Write(p)
	}
}

// WriteTerminator ends the current sentence.
func (e *Encoder) WriteTerminator() {
	e.WriteLength(0)
}
