package storage

import (
	"github.com/aalyth/lunaris-go/internal/value"
)

// Cursor is a (page, cell-index) position into a B+ tree, together with
// the schema used to decode rows at that position.
//
// Grounded on original_source/server/src/storage/cursor.rs.
type Cursor struct {
	Schema        TableSchema
	CurrentPageID uint32
	CurrentCell   uint16
	NumCells      uint16
	Done          bool
}

// NewCursor returns a cursor not yet positioned over any tree.
func NewCursor(schema TableSchema) *Cursor {
	return &Cursor{Schema: schema, Done: true}
}

// Rewind descends to the leftmost leaf of tree, follows the leaf chain
// past leaves left empty by deletes, and positions the cursor at the
// first cell found.
func (c *Cursor) Rewind(tree *BTree) (bool, error) {
	pageID := tree.RootPageID()
	for {
		pg, err := tree.Pager.GetPage(pageID)
		if err != nil {
			return false, err
		}
		switch pg.Kind {
		case KindLeaf:
			if pg.CellsCount == 0 && pg.RightPointer != 0 {
				pageID = pg.RightPointer
				continue
			}
			c.CurrentPageID = pageID
			c.CurrentCell = 0
			c.NumCells = pg.CellsCount
			c.Done = pg.CellsCount == 0
			return !c.Done, nil
		case KindInterior:
			if pg.CellsCount > 0 {
				pageID = InteriorCellLeftChild(pg.ReadCell(0))
			} else {
				pageID = pg.RightPointer
			}
		default:
			c.Done = true
			return false, nil
		}
	}
}

// Next advances the cursor by one row, following the leaf chain when the
// current page is exhausted.
func (c *Cursor) Next(tree *BTree) (bool, error) {
	if c.Done {
		return false, nil
	}
	c.CurrentCell++
	if c.CurrentCell < c.NumCells {
		return true, nil
	}
	pg, err := tree.Pager.GetPage(c.CurrentPageID)
	if err != nil {
		return false, err
	}
	if pg.RightPointer == 0 {
		c.Done = true
		return false, nil
	}
	next, err := tree.Pager.GetPage(pg.RightPointer)
	if err != nil {
		return false, err
	}
	c.CurrentPageID = pg.RightPointer
	c.CurrentCell = 0
	c.NumCells = next.CellsCount
	c.Done = next.CellsCount == 0
	return !c.Done, nil
}

// IsDone reports whether the cursor has exhausted the tree.
func (c *Cursor) IsDone() bool { return c.Done }

// RowID returns the row id at the cursor's current position.
func (c *Cursor) RowID(tree *BTree) (uint64, error) {
	pg, err := tree.Pager.GetPage(c.CurrentPageID)
	if err != nil {
		return 0, err
	}
	return LeafCellKey(pg.ReadCell(c.CurrentCell)), nil
}

// ReadRow decodes the full row at the cursor's current position.
func (c *Cursor) ReadRow(tree *BTree) ([]value.Value, error) {
	pg, err := tree.Pager.GetPage(c.CurrentPageID)
	if err != nil {
		return nil, err
	}
	data := LeafCellData(pg.ReadCell(c.CurrentCell))
	return DeserializeRow(c.Schema, data)
}

// Column decodes a single column at the cursor's current position,
// defaulting to Null if colIndex is out of range.
func (c *Cursor) Column(tree *BTree, colIndex int) (value.Value, error) {
	row, err := c.ReadRow(tree)
	if err != nil {
		return value.Value{}, err
	}
	if colIndex < 0 || colIndex >= len(row) {
		return value.NewNull(), nil
	}
	return row[colIndex], nil
}

// DeleteCurrent removes the current cell in place. If the cursor remains
// within the (now shorter) page it stays valid without advancing the
// index, so the next read sees the row that shifted into the current slot
// (calling Next instead would step past that row); otherwise it follows
// the leaf chain like Next would.
func (c *Cursor) DeleteCurrent(tree *BTree) (bool, error) {
	if c.Done {
		return false, nil
	}
	pg, err := tree.Pager.GetPageMut(c.CurrentPageID)
	if err != nil {
		return false, err
	}
	pg.RemoveCell(c.CurrentCell)
	c.NumCells--

	if c.CurrentCell < c.NumCells {
		return true, nil
	}
	if pg.RightPointer == 0 {
		c.Done = true
		return false, nil
	}
	next, err := tree.Pager.GetPage(pg.RightPointer)
	if err != nil {
		return false, err
	}
	c.CurrentPageID = pg.RightPointer
	c.CurrentCell = 0
	c.NumCells = next.CellsCount
	c.Done = next.CellsCount == 0
	return !c.Done, nil
}
