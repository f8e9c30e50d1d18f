package storage

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/aalyth/lunaris-go/internal/dberr"
)

// FileMetadata is the 16-byte header at offset 0 of every table file:
// magic, root_page_id, next_row_id.
type FileMetadata struct {
	RootPageID uint32
	NextRowID  uint64
}

func (m FileMetadata) toBytes() [MetaPageSize]byte {
	var buf [MetaPageSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], m.RootPageID)
	binary.LittleEndian.PutUint64(buf[8:16], m.NextRowID)
	return buf
}

func metadataFromBytes(buf [MetaPageSize]byte) (FileMetadata, error) {
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != Magic {
		return FileMetadata{}, dberr.Storagef("bad file magic: %#x", magic)
	}
	return FileMetadata{
		RootPageID: binary.LittleEndian.Uint32(buf[4:8]),
		NextRowID:  binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// Pager owns one table's (or the catalog's) file, an in-memory page cache,
// and the file metadata. There is no WAL, no buffer-pool eviction, and no
// free list: the cache is unbounded by design (spec.md §9).
//
// Grounded on original_source/server/src/storage/pager.rs.
type Pager struct {
	file      *os.File
	pageCount uint32
	cache     map[uint32]*Page
	meta      FileMetadata
}

// OpenOrCreate opens path if it exists, else creates it.
func OpenOrCreate(path string) (*Pager, error) {
	if _, err := os.Stat(path); err == nil {
		return Open(path)
	} else if !os.IsNotExist(err) {
		return nil, dberr.IOErr(err)
	}
	return Create(path)
}

// Create truncates (or creates) path, writes the initial metadata page,
// writes one empty leaf as page 1, and fsyncs.
func Create(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, dberr.IOErr(err)
	}
	meta := FileMetadata{RootPageID: 1, NextRowID: 1}
	metaBytes := meta.toBytes()
	if _, err := f.WriteAt(metaBytes[:], 0); err != nil {
		f.Close()
		return nil, dberr.IOErr(err)
	}
	p := &Pager{file: f, pageCount: 1, cache: make(map[uint32]*Page), meta: meta}
	root := NewLeaf(1)
	pageBytes := root.ToBytes()
	if _, err := f.WriteAt(pageBytes[:], MetaPageSize); err != nil {
		f.Close()
		return nil, dberr.IOErr(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, dberr.IOErr(err)
	}
	return p, nil
}

// Open reads the metadata of an existing file and computes the current
// page count from the file length.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, dberr.IOErr(err)
	}
	var metaBuf [MetaPageSize]byte
	if _, err := io.ReadFull(f, metaBuf[:]); err != nil {
		f.Close()
		return nil, dberr.IOErr(err)
	}
	meta, err := metadataFromBytes(metaBuf)
	if err != nil {
		f.Close()
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.IOErr(err)
	}
	pageCount := uint32((info.Size() - MetaPageSize) / PageSize)
	return &Pager{file: f, pageCount: pageCount, cache: make(map[uint32]*Page), meta: meta}, nil
}

// Meta returns a copy of the current file metadata.
func (p *Pager) Meta() FileMetadata { return p.meta }

// SetRootPageID updates the root page id, e.g. after a B+ tree root split.
func (p *Pager) SetRootPageID(id uint32) { p.meta.RootPageID = id }

// NextRowID returns the next row id and increments the counter.
func (p *Pager) NextRowID() uint64 {
	id := p.meta.NextRowID
	p.meta.NextRowID++
	return id
}

func pageOffset(id uint32) int64 {
	return MetaPageSize + int64(id-1)*PageSize
}

// GetPage returns the page for id, reading it from disk on a cache miss.
func (p *Pager) GetPage(id uint32) (*Page, error) {
	if pg, ok := p.cache[id]; ok {
		return pg, nil
	}
	return p.readPageFromDisk(id)
}

// GetPageMut returns the page for id and marks it dirty.
func (p *Pager) GetPageMut(id uint32) (*Page, error) {
	pg, err := p.GetPage(id)
	if err != nil {
		return nil, err
	}
	pg.Dirty = true
	return pg, nil
}

func (p *Pager) readPageFromDisk(id uint32) (*Page, error) {
	var buf [PageSize]byte
	if _, err := p.file.ReadAt(buf[:], pageOffset(id)); err != nil {
		return nil, dberr.IOErr(err)
	}
	pg := PageFromBytes(id, buf)
	p.cache[id] = pg
	return pg, nil
}

// AllocatePage increments the page count and installs a fresh in-memory
// leaf under the new id. The underlying file is not extended until the
// next FlushAll.
func (p *Pager) AllocatePage() uint32 {
	p.pageCount++
	id := p.pageCount
	pg := NewLeaf(id)
	p.cache[id] = pg
	return id
}

// FlushAll writes the metadata page, then every dirty cached page, then
// fsyncs. Flush ordering between pages is unspecified; there is no WAL, so
// a crash mid-flush can leave the file inconsistent (spec.md §9).
func (p *Pager) FlushAll() error {
	metaBytes := p.meta.toBytes()
	if _, err := p.file.WriteAt(metaBytes[:], 0); err != nil {
		return dberr.IOErr(err)
	}
	for id, pg := range p.cache {
		if !pg.Dirty {
			continue
		}
		buf := pg.ToBytes()
		if _, err := p.file.WriteAt(buf[:], pageOffset(id)); err != nil {
			return dberr.IOErr(err)
		}
		pg.Dirty = false
	}
	if err := p.file.Sync(); err != nil {
		return dberr.IOErr(err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (p *Pager) Close() error {
	if err := p.FlushAll(); err != nil {
		return err
	}
	return p.file.Close()
}
