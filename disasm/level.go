package disasm

import (
	"fmt"
	"strings"
)

// Level selects how much of the original source is reconstructed.
type Level uint8

const (
	// Stripped runs the fold pass and emits nothing.
	Stripped Level = iota
	// Raw emits one line per instruction surviving the fold pass.
	Raw
	// Structured recovers statements and control flow.
	Structured
)

func (l Level) String() string {
	switch l {
	case Stripped:
		return "stripped"
	case Raw:
		return "raw"
	case Structured:
		return "structured"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// ParseLevel accepts a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stripped", "none":
		return Stripped, nil
	case "raw", "rawfolded", "raw-folded":
		return Raw, nil
	case "structured", "":
		return Structured, nil
	default:
		return Structured, fmt.Errorf("unknown disassembly level %q", s)
	}
}
