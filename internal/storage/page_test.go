package storage

import "testing"

func TestLeafInsertAndSearch(t *testing.T) {
	p := NewLeaf(1)
	keys := []uint64{10, 5, 20, 15}
	for _, k := range keys {
		idx, found := p.BinarySearchLeaf(k)
		if found {
			t.Fatalf("key %d unexpectedly found before insert", k)
		}
		if err := p.InsertCell(idx, MakeLeafCell(k, []byte("payload"))); err != nil {
			t.Fatalf("insert %d: %v", k, err)
		}
	}

	for _, k := range keys {
		idx, found := p.BinarySearchLeaf(k)
		if !found {
			t.Fatalf("key %d not found after insert", k)
		}
		if got := LeafCellKey(p.ReadCell(idx)); got != k {
			t.Fatalf("cell at %d has key %d, want %d", idx, got, k)
		}
	}

	if p.CellsCount != uint16(len(keys)) {
		t.Fatalf("cells_count = %d, want %d", p.CellsCount, len(keys))
	}
	for i := uint16(1); i < p.CellsCount; i++ {
		if LeafCellKey(p.ReadCell(i-1)) >= LeafCellKey(p.ReadCell(i)) {
			t.Fatalf("cells not strictly ascending at index %d", i)
		}
	}
}

func TestLeafRemoveCell(t *testing.T) {
	p := NewLeaf(1)
	for _, k := range []uint64{1, 2, 3} {
		idx, _ := p.BinarySearchLeaf(k)
		p.InsertCell(idx, MakeLeafCell(k, nil))
	}
	p.RemoveCell(1)
	if p.CellsCount != 2 {
		t.Fatalf("cells_count after remove = %d, want 2", p.CellsCount)
	}
	if got := LeafCellKey(p.ReadCell(0)); got != 1 {
		t.Fatalf("remaining cell 0 key = %d, want 1", got)
	}
	if got := LeafCellKey(p.ReadCell(1)); got != 3 {
		t.Fatalf("remaining cell 1 key = %d, want 3", got)
	}
}

func TestInteriorBinarySearch(t *testing.T) {
	p := NewInterior(1)
	p.InsertCell(0, MakeInteriorCell(100, 10))
	p.InsertCell(1, MakeInteriorCell(101, 20))
	p.InsertCell(2, MakeInteriorCell(102, 30))

	cases := []struct {
		key  uint64
		want uint16
	}{
		{5, 0}, {10, 1}, {15, 1}, {29, 2}, {30, 3}, {99, 3},
	}
	for _, c := range cases {
		if got := p.BinarySearchInterior(c.key); got != c.want {
			t.Errorf("BinarySearchInterior(%d) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestPageByteRoundTrip(t *testing.T) {
	p := NewLeaf(7)
	p.RightPointer = 99
	for _, k := range []uint64{1, 2, 3} {
		idx, _ := p.BinarySearchLeaf(k)
		p.InsertCell(idx, MakeLeafCell(k, []byte("hello")))
	}

	buf := p.ToBytes()
	if len(buf) != PageSize {
		t.Fatalf("ToBytes length = %d, want %d", len(buf), PageSize)
	}
	p2 := PageFromBytes(7, buf)

	if p2.Kind != p.Kind || p2.CellsCount != p.CellsCount || p2.RightPointer != p.RightPointer {
		t.Fatalf("round trip header mismatch: %+v vs %+v", p, p2)
	}
	for i := uint16(0); i < p.CellsCount; i++ {
		a, b := p.ReadCell(i), p2.ReadCell(i)
		if string(a) != string(b) {
			t.Fatalf("cell %d mismatch after round trip", i)
		}
	}
}

func TestPageFullOnOverflow(t *testing.T) {
	p := NewLeaf(1)
	big := make([]byte, CellAreaSize)
	err := p.InsertCell(0, MakeLeafCell(1, big))
	if err == nil {
		t.Fatal("expected PageFull error")
	}
}
