package pex

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ---------------------------------------------------------------------------
// TString: an interned string
// ---------------------------------------------------------------------------

// TString is an entry of a StringTable. Entities hold pointers to entries,
// so renumbering the table (see StringTable.Rebuild) never requires
// rewriting references.
type TString struct {
	value string
	raw   []byte // original bytes when they are not the UTF-8 form of value
	index int
}

func (s *TString) String() string {
	if s == nil {
		return ""
	}
	return s.value
}

// Index returns the entry's position in its table.
func (s *TString) Index() int {
	return s.index
}

// EqualFold compares case-insensitively, the way script identifiers compare.
func (s *TString) EqualFold(v string) bool {
	return s != nil && strings.EqualFold(s.value, v)
}

// Bytes returns the encoded form written to the table.
func (s *TString) Bytes() []byte {
	if s.raw != nil {
		return s.raw
	}
	return []byte(s.value)
}

// newTString builds an entry from encoded bytes. Strings that are not valid
// UTF-8 were written in the compiler's ANSI code page; they are decoded as
// Windows-1252 for display and keep their original bytes for re-encoding.
func newTString(b []byte) *TString {
	if utf8.Valid(b) {
		return &TString{value: string(b)}
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return &TString{value: strings.ToValidUTF8(string(b), "�"), raw: bytes.Clone(b)}
	}
	return &TString{value: string(decoded), raw: bytes.Clone(b)}
}

// ---------------------------------------------------------------------------
// StringTable
// ---------------------------------------------------------------------------

// StringTable is the ordered set of strings a container references by
// 16-bit index. Order is append order.
type StringTable struct {
	entries []*TString
	lookup  map[string]*TString
}

// NewStringTable creates an empty table.
func NewStringTable() *StringTable {
	return &StringTable{
		lookup: make(map[string]*TString),
	}
}

// Len returns the number of entries.
func (t *StringTable) Len() int {
	return len(t.entries)
}

// Get returns the entry at idx.
func (t *StringTable) Get(idx int) (*TString, error) {
	if idx < 0 || idx >= len(t.entries) {
		return nil, fmt.Errorf("%w: %d (table has %d entries)", ErrInvalidStringIndex, idx, len(t.entries))
	}
	return t.entries[idx], nil
}

// Lookup returns the entry with exactly the value v, if present.
func (t *StringTable) Lookup(v string) (*TString, bool) {
	s, ok := t.lookup[v]
	return s, ok
}

// Intern returns the entry for v, appending one if none exists.
func (t *StringTable) Intern(v string) *TString {
	if s, ok := t.lookup[v]; ok {
		return s
	}
	s := &TString{value: v, index: len(t.entries)}
	t.entries = append(t.entries, s)
	t.lookup[v] = s
	return s
}

// All returns the entries in table order.
func (t *StringTable) All() []*TString {
	out := make([]*TString, len(t.entries))
	copy(out, t.entries)
	return out
}

// Rebuild drops every entry not in inUse and renumbers the rest, keeping
// their relative order. It returns the number of entries removed.
func (t *StringTable) Rebuild(inUse map[*TString]bool) int {
	kept := t.entries[:0]
	removed := 0
	for _, s := range t.entries {
		if !inUse[s] {
			if t.lookup[s.value] == s {
				delete(t.lookup, s.value)
			}
			removed++
			continue
		}
		s.index = len(kept)
		kept = append(kept, s)
	}
	for i := len(kept); i < len(t.entries); i++ {
		t.entries[i] = nil
	}
	t.entries = kept
	// a decoded table may hold duplicates; the first survivor takes over
	for _, s := range kept {
		if _, ok := t.lookup[s.value]; !ok {
			t.lookup[s.value] = s
		}
	}
	return removed
}

func (t *StringTable) size() int {
	n := countSize
	for _, s := range t.entries {
		n += wstringSize(s.Bytes())
	}
	return n
}

func (t *StringTable) decode(r *reader) error {
	n, err := r.u16()
	if err != nil {
		return fmt.Errorf("failed to read string table count: %w", err)
	}
	t.entries = make([]*TString, 0, n)
	for i := 0; i < int(n); i++ {
		b, err := r.wstring()
		if err != nil {
			return fmt.Errorf("failed to read string %d of %d: %w", i, n, err)
		}
		s := newTString(b)
		s.index = i
		t.entries = append(t.entries, s)
		if _, dup := t.lookup[s.value]; !dup {
			t.lookup[s.value] = s
		}
	}
	return nil
}

func (t *StringTable) encode(w *writer) {
	w.count(len(t.entries), "string")
	for _, s := range t.entries {
		w.wstring(s.Bytes())
	}
}
