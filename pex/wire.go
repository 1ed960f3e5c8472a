package pex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Field sizes shared by the size calculations.
const (
	refSize   = 2 // string table index
	countSize = 2 // list length prefix
	flagsSize = 4 // user flag bitmask
)

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// ---------------------------------------------------------------------------
// reader: bounds-checked cursor over an in-memory container
// ---------------------------------------------------------------------------

type reader struct {
	data    []byte
	pos     int
	order   byteOrder
	game    Game
	strings *StringTable
}

// take returns the next n bytes without copying.
func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// bool8 reads a flag byte. Values other than 0 and 1 are rejected so that
// re-encoding reproduces the input.
func (r *reader) bool8() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, fmt.Errorf("%w: flag byte %d", ErrInvalidTag, b)
	}
	return b == 1, nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// wstring reads a u16-length-prefixed byte string. The result is a copy.
func (r *reader) wstring() ([]byte, error) {
	n, err := r.u16()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// ref reads a string table index and resolves it.
func (r *reader) ref() (*TString, error) {
	idx, err := r.u16()
	if err != nil {
		return nil, err
	}
	return r.strings.Get(int(idx))
}

// readList reads a u16 count followed by that many elements. Element errors
// carry the element index and the declared total.
func readList[T any](r *reader, kind string, read func(*reader) (T, error)) ([]T, error) {
	n, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s count: %w", kind, err)
	}
	list := make([]T, 0, n)
	for i := 0; i < int(n); i++ {
		v, err := read(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %d of %d: %w", kind, i, n, err)
		}
		list = append(list, v)
	}
	return list, nil
}

// ---------------------------------------------------------------------------
// writer: append-only encoder with a sticky error
// ---------------------------------------------------------------------------

type writer struct {
	buf   []byte
	order byteOrder
	game  Game
	err   error
}

func newWriter(game Game, capacity int) *writer {
	return &writer{
		buf:   make([]byte, 0, capacity),
		order: game.order(),
		game:  game,
	}
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) bool8(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v uint16) {
	w.buf = w.order.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = w.order.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = w.order.AppendUint64(w.buf, v)
}

// count writes a list length, failing if it does not fit in 16 bits.
func (w *writer) count(n int, kind string) {
	if n > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: %d %s entries", ErrTooLarge, n, kind))
	}
	w.u16(uint16(n))
}

func (w *writer) wstring(b []byte) {
	if len(b) > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: string of %d bytes", ErrTooLarge, len(b)))
	}
	w.u16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) ref(s *TString) {
	if s == nil {
		w.fail(ErrNilString)
		w.u16(0)
		return
	}
	if s.index > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: string index %d", ErrTooLarge, s.index))
	}
	w.u16(uint16(s.index))
}

func wstringSize(b []byte) int {
	return countSize + len(b)
}
