// Package storage implements the Lunaris on-disk B+ tree: pages, the
// pager, the row codec, the tree itself, and cursors over it.
//
// Grounded throughout on original_source/server/src/storage/*.rs and
// original_source/server/src/constants.rs; stylistic cues (doc-comment
// density, little-endian accessor naming) taken from the teacher's
// internal/storage/pager package, whose own page/pager/btree design
// (slotted variable-length pages, WAL, buffer-pool eviction, tenant
// prefixes) does not otherwise match this fixed-layout, WAL-less format.
package storage

const (
	PageSize       = 4096
	PageHeaderSize = 16
	CellAreaSize   = PageSize - PageHeaderSize // 4080
	CellPointerSize = 2

	MetaPageSize = 16

	// Magic is "LUNA" read as a big-endian u32; stored little-endian on
	// disk so the first four file bytes are 41 4E 55 4C.
	Magic uint32 = 0x4C554E41

	VMStartingRegisters = 64
)
