// Package lunarisdb is the database facade: it owns the data directory,
// the catalog, and the per-table B+ tree handles, and routes parsed SQL
// text through the compiler and VM. Grounded on
// original_source/server/src/database.rs and spec.md §4.7/§5.
package lunarisdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aalyth/lunaris-go/internal/catalog"
	"github.com/aalyth/lunaris-go/internal/dberr"
	"github.com/aalyth/lunaris-go/internal/storage"
	"github.com/aalyth/lunaris-go/internal/value"
	"github.com/aalyth/lunaris-go/internal/vm"
)

// tableHandle pairs a table's open B+ tree with the mutex that guards
// every operation against it (spec.md §5: "each table's B+ tree handle
// is individually guarded by a mutex").
type tableHandle struct {
	mu   sync.Mutex
	tree *storage.BTree
}

// Database is the single shared handle every server connection executes
// queries against.
type Database struct {
	dataDir string
	catalog *catalog.Catalog

	tablesMu sync.RWMutex
	tables   map[string]*tableHandle
}

// Open ensures dataDir exists, opens its catalog, and returns a ready
// Database. Per-table trees are opened lazily on first use.
func Open(dataDir string) (*Database, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, dberr.IOErr(err)
	}
	cat, err := catalog.Open(dataDir)
	if err != nil {
		return nil, err
	}
	return &Database{
		dataDir: dataDir,
		catalog: cat,
		tables:  make(map[string]*tableHandle),
	}, nil
}

func (d *Database) tablePath(name string) string {
	return filepath.Join(d.dataDir, name+".db")
}

// openTable returns (lazily opening if necessary) the handle for an
// already-cataloged table.
func (d *Database) openTable(name string) (*tableHandle, error) {
	d.tablesMu.RLock()
	h, ok := d.tables[name]
	d.tablesMu.RUnlock()
	if ok {
		return h, nil
	}

	d.tablesMu.Lock()
	defer d.tablesMu.Unlock()
	if h, ok := d.tables[name]; ok {
		return h, nil
	}
	if !d.catalog.TableExists(name) {
		return nil, dberr.NewTableNotFound(name)
	}
	tree, err := storage.OpenTree(d.tablePath(name))
	if err != nil {
		return nil, err
	}
	h = &tableHandle{tree: tree}
	d.tables[name] = h
	return h, nil
}

// GetSchema implements vm.Database.
func (d *Database) GetSchema(table string) (storage.TableSchema, error) {
	return d.catalog.GetSchema(table)
}

// CreateTable implements vm.Database: registers the schema in the
// catalog, then eagerly creates the table's backing file so later
// lookups always find it on disk.
func (d *Database) CreateTable(schema storage.TableSchema) error {
	if err := d.catalog.RegisterTable(schema); err != nil {
		return err
	}
	tree, err := storage.OpenTree(d.tablePath(schema.TableName))
	if err != nil {
		return err
	}
	d.tablesMu.Lock()
	d.tables[schema.TableName] = &tableHandle{tree: tree}
	d.tablesMu.Unlock()
	return nil
}

// InsertRow implements vm.Database: serializes values against the
// table's schema, then inserts and flushes under the table's own lock.
func (d *Database) InsertRow(table string, key uint64, values []value.Value) error {
	schema, err := d.catalog.GetSchema(table)
	if err != nil {
		return err
	}
	data, err := storage.SerializeRow(schema, values)
	if err != nil {
		return err
	}
	h, err := d.openTable(table)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.tree.Insert(key, data); err != nil {
		return err
	}
	return h.tree.Flush()
}

// WithTableMut implements vm.Database: acquires table's lock for the
// duration of fn only (spec.md §5 — never held across instructions). fn
// is responsible for calling tree.Flush() itself if it mutated the tree;
// most calls here are read-only cursor steps, which would make an
// unconditional flush on every instruction needlessly fsync-heavy.
func (d *Database) WithTableMut(table string, fn func(tree *storage.BTree) error) error {
	h, err := d.openTable(table)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.tree)
}

var _ vm.Database = (*Database)(nil)

// ExecuteSQL parses, compiles, and runs a single SQL statement.
func (d *Database) ExecuteSQL(sql string) (*vm.ExecutionResult, error) {
	stmt, err := vm.ParseSQL(sql)
	if err != nil {
		return nil, err
	}
	program, err := vm.Compile(stmt, d.catalog)
	if err != nil {
		return nil, err
	}
	result, err := vm.Execute(d, program)
	if err != nil {
		return nil, err
	}
	if ct, ok := stmt.(vm.CreateTableStmt); ok {
		result.Message = fmt.Sprintf("Table '%s' created", ct.Table)
	}
	return result, nil
}
