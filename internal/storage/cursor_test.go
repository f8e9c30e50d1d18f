package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/aalyth/lunaris-go/internal/value"
)

func cursorTestSchema() TableSchema {
	return NewTableSchema("nums", []ColumnDef{{Name: "n", Type: Integer()}})
}

func openCursorTestTree(t *testing.T, schema TableSchema, n int) *BTree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.db")
	tree, err := OpenTree(path)
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	for i := 0; i < n; i++ {
		row, err := SerializeRow(schema, []value.Value{value.NewInteger(int64(i))})
		if err != nil {
			t.Fatalf("SerializeRow(%d): %v", i, err)
		}
		if err := tree.Insert(uint64(i), row); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	return tree
}

func TestCursorScanOrder(t *testing.T) {
	schema := cursorTestSchema()
	tree := openCursorTestTree(t, schema, 50)

	cur := NewCursor(schema)
	hasRow, err := cur.Rewind(tree)
	if err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	var seen []int64
	for hasRow {
		v, err := cur.Column(tree, 0)
		if err != nil {
			t.Fatalf("Column: %v", err)
		}
		seen = append(seen, v.I)
		hasRow, err = cur.Next(tree)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if !cur.IsDone() {
		t.Fatal("cursor should be done after full scan")
	}
	if len(seen) != 50 {
		t.Fatalf("scanned %d rows, want 50", len(seen))
	}
	for i, v := range seen {
		if v != int64(i) {
			t.Fatalf("row %d = %d, want %d", i, v, i)
		}
	}
}

func TestCursorDeleteCurrentRepositions(t *testing.T) {
	schema := cursorTestSchema()
	tree := openCursorTestTree(t, schema, 5)

	cur := NewCursor(schema)
	if _, err := cur.Rewind(tree); err != nil {
		t.Fatalf("Rewind: %v", err)
	}

	hasMore, err := cur.DeleteCurrent(tree)
	if err != nil {
		t.Fatalf("DeleteCurrent: %v", err)
	}
	if !hasMore {
		t.Fatal("expected more rows after deleting the first of five")
	}

	v, err := cur.Column(tree, 0)
	if err != nil {
		t.Fatalf("Column after delete: %v", err)
	}
	if v.I != 1 {
		t.Fatalf("expected row 1 to shift into current slot, got %d", v.I)
	}

	if _, found, _ := tree.Get(0); found {
		t.Fatal("key 0 should be deleted from the tree")
	}
	if _, found, _ := tree.Get(1); !found {
		t.Fatal("key 1 should remain")
	}
}

// splitForcingSchema pairs a key column with a wide VARCHAR pad so each
// row's leaf cell is large enough that CellAreaSize forces a split well
// before a realistic row count, mirroring spec.md §8 scenario 6's
// 200-row/100-byte-payload dataset.
func splitForcingSchema() TableSchema {
	return NewTableSchema("t", []ColumnDef{
		{Name: "id", Type: Integer()},
		{Name: "pad", Type: Varchar(100)},
	})
}

func openSplitForcingTree(t *testing.T, schema TableSchema, n int) *BTree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.db")
	tree, err := OpenTree(path)
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	pad := strings.Repeat("x", 100)
	for i := 0; i < n; i++ {
		row, err := SerializeRow(schema, []value.Value{value.NewInteger(int64(i)), value.NewText(pad)})
		if err != nil {
			t.Fatalf("SerializeRow(%d): %v", i, err)
		}
		if err := tree.Insert(uint64(i), row); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	return tree
}

// TestCursorDeleteAcrossLeafSplitBoundary forces at least one leaf split
// (60 rows at ~121 bytes/cell comfortably exceeds the 4080-byte
// CellAreaSize per leaf), then deletes a run of rows that starts in the
// first leaf and continues past its right_pointer into the next one,
// verifying the cursor neither skips nor repeats a row across the
// boundary.
func TestCursorDeleteAcrossLeafSplitBoundary(t *testing.T) {
	schema := splitForcingSchema()
	const n = 60
	tree := openSplitForcingTree(t, schema, n)

	rootPage, err := tree.Pager.GetPage(tree.RootPageID())
	if err != nil {
		t.Fatalf("GetPage(root): %v", err)
	}
	if rootPage.Kind != KindInterior {
		t.Fatalf("expected %d rows to force a leaf split (root should be interior), root kind = %v", n, rootPage.Kind)
	}

	cur := NewCursor(schema)
	hasRow, err := cur.Rewind(tree)
	if err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if !hasRow {
		t.Fatal("expected rows in a freshly populated tree")
	}

	const deleteCount = 40 // spans past the first leaf's boundary
	var deletedIDs []int64
	for i := 0; i < deleteCount; i++ {
		v, err := cur.Column(tree, 0)
		if err != nil {
			t.Fatalf("Column before delete %d: %v", i, err)
		}
		deletedIDs = append(deletedIDs, v.I)
		hasMore, err := cur.DeleteCurrent(tree)
		if err != nil {
			t.Fatalf("DeleteCurrent %d: %v", i, err)
		}
		if i < deleteCount-1 && !hasMore {
			t.Fatalf("expected more rows after deleting %d of %d", i+1, n)
		}
	}

	for i, id := range deletedIDs {
		if id != int64(i) {
			t.Fatalf("delete order broken at step %d: got id %d, want %d (row skipped or repeated across leaf boundary)", i, id, i)
		}
	}

	var remaining []int64
	hasRow, err = cur.Rewind(tree)
	if err != nil {
		t.Fatalf("Rewind after deletes: %v", err)
	}
	for hasRow {
		v, err := cur.Column(tree, 0)
		if err != nil {
			t.Fatalf("Column during final scan: %v", err)
		}
		remaining = append(remaining, v.I)
		hasRow, err = cur.Next(tree)
		if err != nil {
			t.Fatalf("Next during final scan: %v", err)
		}
	}
	if len(remaining) != n-deleteCount {
		t.Fatalf("expected %d remaining rows, got %d: %v", n-deleteCount, len(remaining), remaining)
	}
	for i, id := range remaining {
		want := int64(deleteCount + i)
		if id != want {
			t.Fatalf("remaining row %d = %d, want %d (ordering broken across leaf boundary)", i, id, want)
		}
	}
}

func TestCursorRewindEmptyTree(t *testing.T) {
	schema := cursorTestSchema()
	path := filepath.Join(t.TempDir(), "t.db")
	tree, err := OpenTree(path)
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	cur := NewCursor(schema)
	hasRow, err := cur.Rewind(tree)
	if err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if hasRow {
		t.Fatal("expected no rows in an empty tree")
	}
	if !cur.IsDone() {
		t.Fatal("cursor should report done on an empty tree")
	}
}
