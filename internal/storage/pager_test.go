package storage

import (
	"path/filepath"
	"testing"
)

func TestPagerCreateAndReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Meta().RootPageID != 1 || p.Meta().NextRowID != 1 {
		t.Fatalf("unexpected initial meta: %+v", p.Meta())
	}

	id := p.AllocatePage()
	pg, err := p.GetPageMut(id)
	if err != nil {
		t.Fatalf("GetPageMut: %v", err)
	}
	pg.InsertCell(0, MakeLeafCell(42, []byte("value")))
	p.SetRootPageID(id)
	_ = p.NextRowID()
	_ = p.NextRowID()

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p2.Meta().RootPageID != id {
		t.Fatalf("root page id not persisted: got %d, want %d", p2.Meta().RootPageID, id)
	}
	if p2.Meta().NextRowID != 3 {
		t.Fatalf("next row id not persisted: got %d, want 3", p2.Meta().NextRowID)
	}

	pg2, err := p2.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage after reopen: %v", err)
	}
	if pg2.CellsCount != 1 || LeafCellKey(pg2.ReadCell(0)) != 42 {
		t.Fatalf("page contents not persisted: %+v", pg2)
	}
}

func TestPagerOpenOrCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.db")

	p1, err := OpenOrCreate(path)
	if err != nil {
		t.Fatalf("OpenOrCreate (create): %v", err)
	}
	p1.Close()

	p2, err := OpenOrCreate(path)
	if err != nil {
		t.Fatalf("OpenOrCreate (open): %v", err)
	}
	if p2.Meta().RootPageID != 1 {
		t.Fatalf("unexpected root page id on reopen: %d", p2.Meta().RootPageID)
	}
	p2.Close()
}

func TestPagerAllocatePageIsDirty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.db")
	p, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Close()

	id := p.AllocatePage()
	pg, err := p.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if !pg.Dirty {
		t.Fatal("freshly allocated page should be dirty until flushed")
	}
	if err := p.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if pg.Dirty {
		t.Fatal("page should be clean after FlushAll")
	}
}
