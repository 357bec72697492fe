package fourbyte

import (
	"math"

	"github.com/arloliu/irstream/endian"
)

// byteReader is a bounds-checked cursor over a decode view.
//
// Every read reports ok=false instead of panicking when the view ends early, which the
// decoder turns into an Incomplete result. The view is never modified.
type byteReader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
}

func newByteReader(data []byte) byteReader {
	return byteReader{data: data, engine: endian.GetIREngine()}
}

func (r *byteReader) remaining() int { return len(r.data) - r.pos }

func (r *byteReader) readByte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++

	return b, true
}

func (r *byteReader) peekByte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}

	return r.data[r.pos], true
}

func (r *byteReader) readBytes(n int) ([]byte, bool) {
	if n < 0 || r.remaining() < n {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, true
}

func (r *byteReader) readUint16() (uint16, bool) {
	b, ok := r.readBytes(2)
	if !ok {
		return 0, false
	}

	return r.engine.Uint16(b), true
}

func (r *byteReader) readUint32() (uint32, bool) {
	b, ok := r.readBytes(4)
	if !ok {
		return 0, false
	}

	return r.engine.Uint32(b), true
}

func (r *byteReader) readUint64() (uint64, bool) {
	b, ok := r.readBytes(8)
	if !ok {
		return 0, false
	}

	return r.engine.Uint64(b), true
}

// readLength reads a length encoded with the given width: 1 (u8), 2 (u16) or 4 (i32).
// A negative i32 length is reported through valid=false.
func (r *byteReader) readLength(width int) (n int, ok bool, valid bool) {
	switch width {
	case 1:
		b, ok := r.readByte()
		return int(b), ok, true
	case 2:
		v, ok := r.readUint16()
		return int(v), ok, true
	default:
		v, ok := r.readUint32()
		if !ok {
			return 0, false, true
		}
		if v > math.MaxInt32 {
			return 0, true, false
		}

		return int(v), true, true
	}
}

// readString reads a length-prefixed string. The string copies the view bytes, so it
// stays valid after the buffer moves.
func (r *byteReader) readString(width int) (s string, ok bool, valid bool) {
	n, ok, valid := r.readLength(width)
	if !ok || !valid {
		return "", ok, valid
	}
	b, ok := r.readBytes(n)
	if !ok {
		return "", false, true
	}

	return string(b), true, true
}
