package storage

import (
	"encoding/binary"

	"github.com/aalyth/lunaris-go/internal/dberr"
)

// PageKind discriminates a page's role.
type PageKind uint8

const (
	KindInvalid PageKind = 0
	KindLeaf    PageKind = 1
	KindInterior PageKind = 2
)

func pageKindFromByte(b byte) PageKind {
	switch b {
	case 1:
		return KindLeaf
	case 2:
		return KindInterior
	default:
		return KindInvalid
	}
}

// Page is a single 4 KiB page: [kind|reserved|cells_count|cell_bodies_start|
// free_space|right_pointer|reserved][cell area]. The cell area holds a
// growing cell-pointer array from offset 0 and a shrinking cell-body heap
// from the top; CellBodiesStart is the low-water mark of bodies.
//
// right_pointer means "next sibling leaf" on a leaf page and "rightmost
// child page id" on an interior page.
type Page struct {
	ID    uint32
	Dirty bool

	Kind        PageKind
	CellsCount  uint16
	CellBodiesStart uint16
	FreeSpace   uint16
	RightPointer uint32

	Data [CellAreaSize]byte
}

// NewLeaf returns a freshly allocated, empty leaf page.
func NewLeaf(id uint32) *Page {
	return &Page{
		ID:              id,
		Dirty:           true,
		Kind:            KindLeaf,
		CellBodiesStart: CellAreaSize,
		FreeSpace:       CellAreaSize,
	}
}

// NewInterior returns a freshly allocated, empty interior page.
func NewInterior(id uint32) *Page {
	return &Page{
		ID:              id,
		Dirty:           true,
		Kind:            KindInterior,
		CellBodiesStart: CellAreaSize,
		FreeSpace:       CellAreaSize,
	}
}

// ToBytes serializes the page to its exact 4096-byte on-disk form.
func (p *Page) ToBytes() [PageSize]byte {
	var buf [PageSize]byte
	buf[0] = byte(p.Kind)
	binary.LittleEndian.PutUint16(buf[2:4], p.CellsCount)
	binary.LittleEndian.PutUint16(buf[4:6], p.CellBodiesStart)
	binary.LittleEndian.PutUint16(buf[6:8], p.FreeSpace)
	binary.LittleEndian.PutUint32(buf[8:12], p.RightPointer)
	copy(buf[PageHeaderSize:], p.Data[:])
	return buf
}

// PageFromBytes reconstructs a Page from its on-disk bytes.
func PageFromBytes(id uint32, buf [PageSize]byte) *Page {
	p := &Page{
		ID:              id,
		Kind:            pageKindFromByte(buf[0]),
		CellsCount:      binary.LittleEndian.Uint16(buf[2:4]),
		CellBodiesStart: binary.LittleEndian.Uint16(buf[4:6]),
		FreeSpace:       binary.LittleEndian.Uint16(buf[6:8]),
		RightPointer:    binary.LittleEndian.Uint32(buf[8:12]),
	}
	copy(p.Data[:], buf[PageHeaderSize:])
	return p
}

func cellPointerOffset(index uint16) int { return int(index) * CellPointerSize }

func (p *Page) cellPointersEnd() int { return int(p.CellsCount) * CellPointerSize }

// GetCellOffset returns the body offset stored at pointer slot index.
func (p *Page) GetCellOffset(index uint16) uint16 {
	off := cellPointerOffset(index)
	return binary.LittleEndian.Uint16(p.Data[off : off+2])
}

func (p *Page) setCellOffset(index uint16, offset uint16) {
	off := cellPointerOffset(index)
	binary.LittleEndian.PutUint16(p.Data[off:off+2], offset)
}

// UsableSpace is the free gap between the end of the pointer array and the
// start of the cell-body heap.
func (p *Page) UsableSpace() int {
	contentStart := int(p.CellBodiesStart)
	pointersEnd := p.cellPointersEnd()
	if contentStart < pointersEnd {
		return 0
	}
	return contentStart - pointersEnd
}

// ReadCell returns the raw bytes of the cell at index.
func (p *Page) ReadCell(index uint16) []byte {
	offset := int(p.GetCellOffset(index))
	switch p.Kind {
	case KindLeaf:
		dataLen := int(binary.LittleEndian.Uint16(p.Data[offset+8 : offset+10]))
		return p.Data[offset : offset+10+dataLen]
	case KindInterior:
		return p.Data[offset : offset+12]
	default:
		return nil
	}
}

// -- Leaf cell accessors: [row_id u64][data_len u16][row bytes...] --

func LeafCellKey(cell []byte) uint64 {
	return binary.LittleEndian.Uint64(cell[0:8])
}

func LeafCellData(cell []byte) []byte {
	dataLen := int(binary.LittleEndian.Uint16(cell[8:10]))
	return cell[10 : 10+dataLen]
}

// -- Interior cell accessors: [left_child u32][separator_key u64] --

func InteriorCellLeftChild(cell []byte) uint32 {
	return binary.LittleEndian.Uint32(cell[0:4])
}

func InteriorCellKey(cell []byte) uint64 {
	return binary.LittleEndian.Uint64(cell[4:12])
}

// InsertCell inserts cellData at sorted pointer-array position sortedIndex,
// shifting later pointers right. Fails with dberr PageFull when there is
// not enough usable space.
func (p *Page) InsertCell(sortedIndex uint16, cellData []byte) error {
	cellSize := len(cellData)
	needed := cellSize + CellPointerSize
	available := p.UsableSpace()
	if needed > available {
		return dberr.NewPageFull(needed, available)
	}

	newContentStart := int(p.CellBodiesStart) - cellSize
	copy(p.Data[newContentStart:newContentStart+cellSize], cellData)
	p.CellBodiesStart = uint16(newContentStart)

	for i := p.CellsCount; i > sortedIndex; i-- {
		off := p.GetCellOffset(i - 1)
		p.setCellOffset(i, off)
	}
	p.setCellOffset(sortedIndex, uint16(newContentStart))

	p.CellsCount++
	p.FreeSpace = uint16(p.UsableSpace())
	p.Dirty = true
	return nil
}

// RemoveCell removes the cell at index, shifting later pointers left. It
// does not reclaim the cell body bytes; fragmentation is tolerated and only
// recovered when the page is rebuilt during a split.
func (p *Page) RemoveCell(index uint16) {
	for i := index; i+1 < p.CellsCount; i++ {
		off := p.GetCellOffset(i + 1)
		p.setCellOffset(i, off)
	}
	p.CellsCount--
	p.FreeSpace = uint16(p.UsableSpace())
	p.Dirty = true
}

// BinarySearchLeaf returns (index, true) if key is present, else the
// sorted insertion point and false.
func (p *Page) BinarySearchLeaf(key uint64) (uint16, bool) {
	left, right := uint16(0), p.CellsCount
	for left < right {
		mid := left + (right-left)/2
		cellKey := LeafCellKey(p.ReadCell(mid))
		switch {
		case cellKey == key:
			return mid, true
		case cellKey < key:
			left = mid + 1
		default:
			right = mid
		}
	}
	return left, false
}

// BinarySearchInterior returns the first index whose separator key is
// strictly greater than key; equal to CellsCount means "follow
// RightPointer".
func (p *Page) BinarySearchInterior(key uint64) uint16 {
	left, right := uint16(0), p.CellsCount
	for left < right {
		mid := left + (right-left)/2
		cellKey := InteriorCellKey(p.ReadCell(mid))
		if key < cellKey {
			right = mid
		} else {
			left = mid + 1
		}
	}
	return left
}

// MakeLeafCell builds a leaf cell body from a row id and payload.
func MakeLeafCell(rowID uint64, data []byte) []byte {
	cell := make([]byte, 10+len(data))
	binary.LittleEndian.PutUint64(cell[0:8], rowID)
	binary.LittleEndian.PutUint16(cell[8:10], uint16(len(data)))
	copy(cell[10:], data)
	return cell
}

// MakeInteriorCell builds an interior cell body from a child pointer and
// separator key.
func MakeInteriorCell(leftChild uint32, separatorKey uint64) []byte {
	cell := make([]byte, 12)
	binary.LittleEndian.PutUint32(cell[0:4], leftChild)
	binary.LittleEndian.PutUint64(cell[4:12], separatorKey)
	return cell
}
