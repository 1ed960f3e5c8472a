package pex

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Container is a decoded compiled script file.
type Container struct {
	Header    Header
	Debug     *DebugInfo // nil when the file carries no debug info
	UserFlags []UserFlag
	Scripts   []*Script

	strings *StringTable
}

// NewContainer returns an empty container for game with the version
// numbers its compiler writes.
func NewContainer(game Game) *Container {
	h := Header{Game: game, MajorVersion: 3, MinorVersion: 2, GameID: 1}
	if game == Fallout4 {
		h.MinorVersion = 9
		h.GameID = 2
	}
	return &Container{Header: h, strings: NewStringTable()}
}

// Strings returns the container's string table.
func (c *Container) Strings() *StringTable {
	return c.strings
}

// Intern is shorthand for c.Strings().Intern(v).
func (c *Container) Intern(v string) *TString {
	return c.strings.Intern(v)
}

// Ident returns an identifier operand for name, interning it.
func (c *Container) Ident(name string) Operand {
	return Ident(c.strings.Intern(name))
}

// StrValue returns a string literal operand for v, interning it.
func (c *Container) StrValue(v string) Operand {
	return StrValue(c.strings.Intern(v))
}

// Object returns the script object named name (case-insensitive).
func (c *Container) Object(name string) *Script {
	for _, s := range c.Scripts {
		if s.Name.EqualFold(name) {
			return s
		}
	}
	return nil
}

// FlagNames returns the declared names of the bits set in mask, in
// declaration order.
func (c *Container) FlagNames(mask uint32) []string {
	var names []string
	for _, f := range c.UserFlags {
		if m := f.Mask(); m != 0 && mask&m != 0 {
			names = append(names, f.Name.String())
		}
	}
	return names
}

// Size returns the encoded size in bytes.
func (c *Container) Size() int {
	g := c.Header.Game
	n := c.Header.size() + c.strings.size() + 1
	if c.Debug != nil {
		n += c.Debug.size(g)
	}
	n += countSize + len(c.UserFlags)*(refSize+1)
	n += countSize
	for _, s := range c.Scripts {
		n += s.size(g)
	}
	return n
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Decode parses a complete container. Any failure is a *FormatError.
func Decode(data []byte) (*Container, error) {
	r := &reader{data: data, strings: NewStringTable()}
	c, err := decode(r)
	if err != nil {
		return nil, &FormatError{Offset: r.pos, Err: err}
	}
	return c, nil
}

// DecodeReader reads all of rd and decodes it.
func DecodeReader(rd io.Reader) (*Container, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	return Decode(data)
}

func decode(r *reader) (*Container, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	c := &Container{Header: h, strings: r.strings}
	if err := c.strings.decode(r); err != nil {
		return nil, err
	}

	hasDebug, err := r.bool8()
	if err != nil {
		return nil, fmt.Errorf("failed to read debug flag: %w", err)
	}
	if hasDebug {
		if c.Debug, err = readDebugInfo(r); err != nil {
			return nil, fmt.Errorf("debug info: %w", err)
		}
	}
	if c.UserFlags, err = readList(r, "user flag", readUserFlag); err != nil {
		return nil, err
	}
	if c.Scripts, err = readList(r, "script", readScript); err != nil {
		return nil, err
	}
	if r.remaining() > 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, r.remaining())
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Encode serializes the container. Size fields are recomputed from the
// current contents; the string table is written as is.
func (c *Container) Encode() ([]byte, error) {
	g := c.Header.Game
	if g != Skyrim && g != Fallout4 {
		return nil, fmt.Errorf("encoding container: %w: unknown game %s", ErrInvalidMagic, g)
	}
	w := newWriter(g, c.Size())
	c.Header.encode(w)
	c.strings.encode(w)
	if c.Debug != nil {
		w.u8(1)
		c.Debug.encode(w)
	} else {
		w.u8(0)
	}
	w.count(len(c.UserFlags), "user flag")
	for _, f := range c.UserFlags {
		f.encode(w)
	}
	w.count(len(c.Scripts), "script")
	for _, s := range c.Scripts {
		s.encode(w)
	}
	if w.err != nil {
		return nil, fmt.Errorf("encoding container: %w", w.err)
	}
	return w.buf, nil
}

// WriteTo encodes the container to wr.
func (c *Container) WriteTo(wr io.Writer) (int64, error) {
	data, err := c.Encode()
	if err != nil {
		return 0, err
	}
	n, err := wr.Write(data)
	return int64(n), err
}

// ---------------------------------------------------------------------------
// Describe
// ---------------------------------------------------------------------------

// Describe returns a short multi-line description of the header.
func (c *Container) Describe() string {
	var sb strings.Builder
	h := c.Header
	fmt.Fprintf(&sb, "game:     %s (version %d.%d, id %d)\n", h.Game, h.MajorVersion, h.MinorVersion, h.GameID)
	fmt.Fprintf(&sb, "source:   %s\n", h.SourceFile)
	fmt.Fprintf(&sb, "compiled: %d by %s on %s\n", h.CompileTime, h.UserName, h.MachineName)
	fmt.Fprintf(&sb, "strings:  %d\n", c.strings.Len())
	fmt.Fprintf(&sb, "objects:  %d\n", len(c.Scripts))
	return sb.String()
}

// IsFormatError reports whether err came from decoding malformed data.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
