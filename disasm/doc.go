// Package disasm turns compiled Papyrus functions back into readable
// pseudocode.
//
// Disassembly runs in two passes over a working copy of a function's
// instructions. The fold pass inlines compiler temporaries: each
// instruction writing a "::temp" variable is deleted and its expression is
// substituted wherever the temporary is read afterwards. The structuring
// pass recognizes IF/ELSEIF/ELSE and WHILE jump shapes and renders
// indented statements.
//
// When structuring fails part way through, the caller still gets every
// line produced so far followed by raw dumps of the remaining
// instructions, and a *StructureError describing where it stopped.
package disasm
