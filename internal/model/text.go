// internal/model/text.go
package model

// textCapacity is the largest field capacity used by the model.
const textCapacity = ComponentFieldSize

// text is a fixed-capacity string buffer. Writes are always bounded by the
// limit passed to set; bytes beyond the written length are left as they were
// and are never exposed by String.
type text struct {
	buf [textCapacity]byte
	n   uint8
}

// set copies at most limit bytes of s into the buffer and returns the number
// of bytes copied. Overlong input is truncated.
func (t *text) set(s string, limit int) int {
	if limit > textCapacity {
		limit = textCapacity
	}
	n := copy(t.buf[:limit], s)
	t.n = uint8(n)
	return n
}

// reset rewinds the write position without clearing the buffer.
func (t *text) reset() {
	t.n = 0
}

// appendByte adds c if the field is below limit. It reports whether c was kept.
func (t *text) appendByte(c byte, limit int) bool {
	if limit > textCapacity {
		limit = textCapacity
	}
	if int(t.n) >= limit {
		return false
	}
	t.buf[t.n] = c
	t.n++
	return true
}

// String returns the written portion of the buffer.
func (t *text) String() string {
	return string(t.buf[:t.n])
}

// Len returns the number of written bytes.
func (t *text) Len() int {
	return int(t.n)
}
