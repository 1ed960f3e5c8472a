package pex

import (
	"encoding/binary"
	"fmt"
)

// Game identifies which engine a container was compiled for. The engine
// decides the byte order and which optional fields are present.
type Game uint8

const (
	GameUnknown Game = iota
	Skyrim
	Fallout4
)

// Magic numbers, as read big-endian from the first four bytes of a file.
const (
	MagicSkyrim   uint32 = 0xFA57C0DE
	MagicFallout4 uint32 = 0xDEC057FA
)

// GameFromMagic maps a magic number to its engine.
func GameFromMagic(magic uint32) (Game, error) {
	switch magic {
	case MagicSkyrim:
		return Skyrim, nil
	case MagicFallout4:
		return Fallout4, nil
	default:
		return GameUnknown, fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, magic)
	}
}

func (g Game) String() string {
	switch g {
	case Skyrim:
		return "Skyrim"
	case Fallout4:
		return "Fallout4"
	default:
		return fmt.Sprintf("Game(%d)", uint8(g))
	}
}

// Magic returns the engine's magic number.
func (g Game) Magic() uint32 {
	if g == Fallout4 {
		return MagicFallout4
	}
	return MagicSkyrim
}

// HasStructs reports whether the engine's format carries structs, const
// flags, property groups and struct orders.
func (g Game) HasStructs() bool {
	return g == Fallout4
}

func (g Game) order() byteOrder {
	if g == Fallout4 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

// Header is the fixed prologue of a container. The three name fields are
// raw byte strings stored inline, not string table references.
type Header struct {
	Game         Game
	MajorVersion uint8
	MinorVersion uint8
	GameID       uint16
	CompileTime  uint64
	SourceFile   string
	UserName     string
	MachineName  string
}

// magic(4) + major(1) + minor(1) + gameID(2) + compileTime(8)
const headerFixedSize = 16

func (h *Header) size() int {
	return headerFixedSize +
		wstringSize([]byte(h.SourceFile)) +
		wstringSize([]byte(h.UserName)) +
		wstringSize([]byte(h.MachineName))
}

// readHeader reads the header and configures the reader's byte order.
func readHeader(r *reader) (Header, error) {
	b, err := r.take(4)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read magic: %w", err)
	}
	game, err := GameFromMagic(binary.BigEndian.Uint32(b))
	if err != nil {
		return Header{}, err
	}
	r.game = game
	r.order = game.order()

	h := Header{Game: game}
	if h.MajorVersion, err = r.u8(); err != nil {
		return Header{}, fmt.Errorf("failed to read major version: %w", err)
	}
	if h.MinorVersion, err = r.u8(); err != nil {
		return Header{}, fmt.Errorf("failed to read minor version: %w", err)
	}
	if h.GameID, err = r.u16(); err != nil {
		return Header{}, fmt.Errorf("failed to read game id: %w", err)
	}
	if h.CompileTime, err = r.u64(); err != nil {
		return Header{}, fmt.Errorf("failed to read compile time: %w", err)
	}

	fields := []struct {
		name string
		dst  *string
	}{
		{"source file name", &h.SourceFile},
		{"user name", &h.UserName},
		{"machine name", &h.MachineName},
	}
	for _, f := range fields {
		s, err := r.wstring()
		if err != nil {
			return Header{}, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		*f.dst = string(s)
	}
	return h, nil
}

func (h *Header) encode(w *writer) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, h.Game.Magic())
	w.u8(h.MajorVersion)
	w.u8(h.MinorVersion)
	w.u16(h.GameID)
	w.u64(h.CompileTime)
	w.wstring([]byte(h.SourceFile))
	w.wstring([]byte(h.UserName))
	w.wstring([]byte(h.MachineName))
}
