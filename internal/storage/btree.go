package storage

import (
	"sort"

	"github.com/aalyth/lunaris-go/internal/dberr"
)

// insertOutcome is what insertIntoPage reports upward: either the insert
// is fully absorbed, or the page split and a new separator must be linked
// into the parent.
type insertOutcome struct {
	split      bool
	newPageID  uint32
	medianKey  uint64
}

func doneOutcome() insertOutcome { return insertOutcome{} }

// BTree is a single B+ tree over one Pager. Grounded on
// original_source/server/src/storage/btree.rs.
type BTree struct {
	Pager *Pager
}

// NewBTree wraps an already-open Pager as a B+ tree.
func NewBTree(pager *Pager) *BTree {
	return &BTree{Pager: pager}
}

// OpenTree opens or creates the file at path and wraps it as a B+ tree.
func OpenTree(path string) (*BTree, error) {
	pager, err := OpenOrCreate(path)
	if err != nil {
		return nil, err
	}
	return NewBTree(pager), nil
}

// RootPageID returns the tree's current root page id.
func (t *BTree) RootPageID() uint32 { return t.Pager.Meta().RootPageID }

// NextRowID allocates the next row id from the pager's metadata.
func (t *BTree) NextRowID() uint64 { return t.Pager.NextRowID() }

// Flush persists all dirty pages and the metadata header.
func (t *BTree) Flush() error { return t.Pager.FlushAll() }

// Search descends from the root to the owning leaf for key, returning the
// leaf page id and the leaf's binary-search result.
func (t *BTree) Search(key uint64) (leafPageID uint32, index uint16, found bool, err error) {
	pageID := t.RootPageID()
	for {
		pg, err := t.Pager.GetPage(pageID)
		if err != nil {
			return 0, 0, false, err
		}
		switch pg.Kind {
		case KindLeaf:
			idx, ok := pg.BinarySearchLeaf(key)
			return pageID, idx, ok, nil
		case KindInterior:
			idx := pg.BinarySearchInterior(key)
			if idx < pg.CellsCount {
				pageID = InteriorCellLeftChild(pg.ReadCell(idx))
			} else {
				pageID = pg.RightPointer
			}
		default:
			return 0, 0, false, dberr.Storagef("hit free page during search")
		}
	}
}

// Get returns the stored payload for key, or (nil, false) if absent.
func (t *BTree) Get(key uint64) ([]byte, bool, error) {
	leafID, idx, found, err := t.Search(key)
	if err != nil || !found {
		return nil, false, err
	}
	pg, err := t.Pager.GetPage(leafID)
	if err != nil {
		return nil, false, err
	}
	return LeafCellData(pg.ReadCell(idx)), true, nil
}

// Insert adds key -> data. Fails with dberr DuplicateKey if key is present.
func (t *BTree) Insert(key uint64, data []byte) error {
	cell := MakeLeafCell(key, data)
	rootID := t.RootPageID()
	outcome, err := t.insertIntoPage(rootID, key, cell)
	if err != nil {
		return err
	}
	if outcome.split {
		newRootID := t.Pager.AllocatePage()
		newRoot, err := t.Pager.GetPageMut(newRootID)
		if err != nil {
			return err
		}
		*newRoot = *NewInterior(newRootID)
		interiorCell := MakeInteriorCell(rootID, outcome.medianKey)
		if err := newRoot.InsertCell(0, interiorCell); err != nil {
			return err
		}
		newRoot.RightPointer = outcome.newPageID
		t.Pager.SetRootPageID(newRootID)
	}
	return nil
}

func (t *BTree) insertIntoPage(pageID uint32, key uint64, cell []byte) (insertOutcome, error) {
	pg, err := t.Pager.GetPage(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	switch pg.Kind {
	case KindLeaf:
		return t.insertIntoLeaf(pageID, key, cell)
	case KindInterior:
		return t.insertIntoInterior(pageID, key, cell)
	default:
		return insertOutcome{}, dberr.Storagef("hit free page during insert")
	}
}

func (t *BTree) insertIntoLeaf(pageID uint32, key uint64, cell []byte) (insertOutcome, error) {
	pg, err := t.Pager.GetPageMut(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	pos, found := pg.BinarySearchLeaf(key)
	if found {
		return insertOutcome{}, dberr.NewDuplicateKey(key)
	}
	if err := pg.InsertCell(pos, cell); err == nil {
		return doneOutcome(), nil
	}
	return t.splitLeaf(pageID, key, cell)
}

func (t *BTree) insertIntoInterior(pageID uint32, key uint64, cell []byte) (insertOutcome, error) {
	pg, err := t.Pager.GetPage(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	childIdx := pg.BinarySearchInterior(key)
	var childID uint32
	if childIdx < pg.CellsCount {
		childID = InteriorCellLeftChild(pg.ReadCell(childIdx))
	} else {
		childID = pg.RightPointer
	}

	childOutcome, err := t.insertIntoPage(childID, key, cell)
	if err != nil {
		return insertOutcome{}, err
	}
	if !childOutcome.split {
		return doneOutcome(), nil
	}

	pgMut, err := t.Pager.GetPageMut(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	interiorCell := MakeInteriorCell(childID, childOutcome.medianKey)

	if err := pgMut.InsertCell(childIdx, interiorCell); err == nil {
		if childIdx+1 < pgMut.CellsCount {
			next := pgMut.ReadCell(childIdx + 1)
			nextKey := InteriorCellKey(next)
			replacement := MakeInteriorCell(childOutcome.newPageID, nextKey)
			pgMut.RemoveCell(childIdx + 1)
			if err := pgMut.InsertCell(childIdx+1, replacement); err != nil {
				return insertOutcome{}, err
			}
		} else {
			pgMut.RightPointer = childOutcome.newPageID
		}
		return doneOutcome(), nil
	}

	return t.splitInterior(pageID, childID, childOutcome.newPageID, childOutcome.medianKey)
}

type leafCellEntry struct {
	key  uint64
	data []byte
}

// splitLeaf gathers every existing cell plus the new one, sorts by key,
// and rebuilds pageID as the left half and a freshly allocated page as
// the right half, chaining their right pointers.
func (t *BTree) splitLeaf(pageID uint32, newKey uint64, newCell []byte) (insertOutcome, error) {
	pg, err := t.Pager.GetPage(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	oldRight := pg.RightPointer

	all := make([]leafCellEntry, 0, pg.CellsCount+1)
	for i := uint16(0); i < pg.CellsCount; i++ {
		c := pg.ReadCell(i)
		body := append([]byte(nil), LeafCellData(c)...)
		all = append(all, leafCellEntry{key: LeafCellKey(c), data: body})
	}
	all = append(all, leafCellEntry{key: newKey, data: newCell[10:]})
	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })

	mid := len(all) / 2
	medianKey := all[mid].key

	newRightID := t.Pager.AllocatePage()

	leftPage, err := t.Pager.GetPageMut(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	*leftPage = *NewLeaf(pageID)
	for _, e := range all[:mid] {
		if err := leftPage.InsertCell(leftPage.CellsCount, MakeLeafCell(e.key, e.data)); err != nil {
			return insertOutcome{}, err
		}
	}
	leftPage.RightPointer = newRightID

	rightPage, err := t.Pager.GetPageMut(newRightID)
	if err != nil {
		return insertOutcome{}, err
	}
	*rightPage = *NewLeaf(newRightID)
	for _, e := range all[mid:] {
		if err := rightPage.InsertCell(rightPage.CellsCount, MakeLeafCell(e.key, e.data)); err != nil {
			return insertOutcome{}, err
		}
	}
	rightPage.RightPointer = oldRight

	return insertOutcome{split: true, newPageID: newRightID, medianKey: medianKey}, nil
}

type interiorCellEntry struct {
	key       uint64
	leftChild uint32
}

// splitInterior gathers every existing (separator, left-child) pair plus
// the new separator, sorts, and rebuilds pageID/a new page around the
// median — the median's left-child becomes the left page's right pointer
// and the median key itself is not stored in either child.
//
// Interior split edge case (spec.md §9, §4.4): when the new separator
// lands at the rightmost position, the right page's right pointer must be
// the newly inserted right child rather than the page's original right
// pointer.
func (t *BTree) splitInterior(pageID uint32, newChildLeft, newChildRight uint32, newKey uint64) (insertOutcome, error) {
	pg, err := t.Pager.GetPage(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	oldRight := pg.RightPointer

	all := make([]interiorCellEntry, 0, pg.CellsCount+1)
	for i := uint16(0); i < pg.CellsCount; i++ {
		c := pg.ReadCell(i)
		all = append(all, interiorCellEntry{key: InteriorCellKey(c), leftChild: InteriorCellLeftChild(c)})
	}

	pos := sort.Search(len(all), func(i int) bool { return all[i].key >= newKey })
	inserted := make([]interiorCellEntry, 0, len(all)+1)
	inserted = append(inserted, all[:pos]...)
	inserted = append(inserted, interiorCellEntry{key: newKey, leftChild: newChildLeft})
	inserted = append(inserted, all[pos:]...)
	all = inserted

	if pos+1 < len(all) {
		all[pos+1].leftChild = newChildRight
	}

	mid := len(all) / 2
	medianKey := all[mid].key
	leftRightPtr := all[mid].leftChild

	var rightmost uint32
	if pos+1 >= len(all) {
		rightmost = newChildRight
	} else {
		rightmost = oldRight
	}

	newRightID := t.Pager.AllocatePage()

	leftPage, err := t.Pager.GetPageMut(pageID)
	if err != nil {
		return insertOutcome{}, err
	}
	*leftPage = *NewInterior(pageID)
	for _, e := range all[:mid] {
		if err := leftPage.InsertCell(leftPage.CellsCount, MakeInteriorCell(e.leftChild, e.key)); err != nil {
			return insertOutcome{}, err
		}
	}
	leftPage.RightPointer = leftRightPtr

	rightPage, err := t.Pager.GetPageMut(newRightID)
	if err != nil {
		return insertOutcome{}, err
	}
	*rightPage = *NewInterior(newRightID)
	for _, e := range all[mid+1:] {
		if err := rightPage.InsertCell(rightPage.CellsCount, MakeInteriorCell(e.leftChild, e.key)); err != nil {
			return insertOutcome{}, err
		}
	}
	rightPage.RightPointer = rightmost

	return insertOutcome{split: true, newPageID: newRightID, medianKey: medianKey}, nil
}

// Delete removes key if present, returning whether it was found. No
// rebalancing is performed; empty leaves remain linked in the chain.
func (t *BTree) Delete(key uint64) (bool, error) {
	leafID, idx, found, err := t.Search(key)
	if err != nil || !found {
		return false, err
	}
	pg, err := t.Pager.GetPageMut(leafID)
	if err != nil {
		return false, err
	}
	pg.RemoveCell(idx)
	return true, nil
}

// GetCellDataAt returns the raw payload of the cell at a cursor position.
func (t *BTree) GetCellDataAt(pageID uint32, index uint16) ([]byte, error) {
	pg, err := t.Pager.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	return LeafCellData(pg.ReadCell(index)), nil
}
