// Package pex reads and writes compiled Papyrus script containers.
//
// A container holds a header, an interned string table, optional debug
// info, user flag definitions and one or more script objects. Skyrim files
// are big-endian and Fallout 4 files little-endian; Fallout 4 adds
// structs, const flags, property groups and struct member orders.
//
// Decode followed by Encode reproduces the input byte for byte. Entities
// refer to strings through *TString pointers into the container's table,
// so the table can be extended (Intern) or compacted (CompactStrings)
// without rewriting the entities.
package pex
