// Package catalog implements the schema registry: a single-tenant,
// uint64-keyed B+ tree (catalog.db) whose leaf cells carry JSON-encoded
// table schemas, mirrored into an in-memory map on open.
//
// Grounded on original_source/server/src/catalog.rs. The teacher's own
// catalog (internal/storage/pager/catalog.go) is tenant-prefixed and
// byte-string-keyed, which this spec does not call for — only its
// "catalog is itself a B+ tree of JSON rows" idea and general Go naming
// conventions are carried over; the mechanics below follow the Rust
// original instead.
package catalog

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aalyth/lunaris-go/internal/dberr"
	"github.com/aalyth/lunaris-go/internal/storage"
)

// Catalog owns the catalog.db tree and an in-memory schema map built from
// it at open time.
type Catalog struct {
	mu      sync.RWMutex
	tree    *storage.BTree
	schemas map[string]storage.TableSchema
}

// Open opens (or creates) dir/catalog.db and rebuilds the in-memory schema
// map by scanning every leaf cell.
func Open(dir string) (*Catalog, error) {
	tree, err := storage.OpenTree(filepath.Join(dir, "catalog.db"))
	if err != nil {
		return nil, err
	}
	c := &Catalog{tree: tree, schemas: make(map[string]storage.TableSchema)}

	dummy := storage.NewTableSchema("_catalog", nil)
	cur := storage.NewCursor(dummy)
	ok, err := cur.Rewind(tree)
	if err != nil {
		return nil, err
	}
	for ok {
		data, err := tree.GetCellDataAt(cur.CurrentPageID, cur.CurrentCell)
		if err != nil {
			return nil, err
		}
		var schema jsonSchema
		if err := json.Unmarshal(data, &schema); err == nil {
			c.schemas[schema.TableName] = schema.toTableSchema()
		}
		ok, err = cur.Next(tree)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// GetSchema returns the schema for name, or a dberr TableNotFound error.
func (c *Catalog) GetSchema(name string) (storage.TableSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[name]
	if !ok {
		return storage.TableSchema{}, dberr.NewTableNotFound(name)
	}
	return s, nil
}

// TableExists reports whether name is registered.
func (c *Catalog) TableExists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.schemas[name]
	return ok
}

// TableNames returns every registered table name, sorted.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for n := range c.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterTable persists schema as a new catalog row and adds it to the
// in-memory map. Fails with dberr TableAlreadyExists if already present.
// The per-table data file is created separately by the database façade.
func (c *Catalog) RegisterTable(schema storage.TableSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.schemas[schema.TableName]; ok {
		return dberr.NewTableAlreadyExists(schema.TableName)
	}

	key := c.tree.NextRowID()
	data, err := json.Marshal(fromTableSchema(schema))
	if err != nil {
		return err
	}
	if err := c.tree.Insert(key, data); err != nil {
		return err
	}
	if err := c.tree.Flush(); err != nil {
		return err
	}
	c.schemas[schema.TableName] = schema
	return nil
}

// jsonSchema is the on-disk JSON shape of a TableSchema; kept distinct
// from storage.TableSchema so the storage package needs no JSON tags or
// encoding/json dependency of its own.
type jsonSchema struct {
	TableName string            `json:"table_name"`
	Columns   []jsonColumnDef    `json:"columns"`
}

type jsonColumnDef struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	VarcharLen uint16 `json:"varchar_len,omitempty"`
}

func fromTableSchema(s storage.TableSchema) jsonSchema {
	cols := make([]jsonColumnDef, len(s.Columns))
	for i, c := range s.Columns {
		jc := jsonColumnDef{Name: c.Name, VarcharLen: c.Type.VarcharLen}
		switch c.Type.Kind {
		case storage.ColInteger:
			jc.Kind = "integer"
		case storage.ColFloat:
			jc.Kind = "float"
		case storage.ColBoolean:
			jc.Kind = "boolean"
		case storage.ColVarchar:
			jc.Kind = "varchar"
		}
		cols[i] = jc
	}
	return jsonSchema{TableName: s.TableName, Columns: cols}
}

func (j jsonSchema) toTableSchema() storage.TableSchema {
	cols := make([]storage.ColumnDef, len(j.Columns))
	for i, jc := range j.Columns {
		var ct storage.ColumnType
		switch jc.Kind {
		case "integer":
			ct = storage.Integer()
		case "float":
			ct = storage.Float()
		case "boolean":
			ct = storage.Boolean()
		case "varchar":
			ct = storage.Varchar(jc.VarcharLen)
		}
		cols[i] = storage.ColumnDef{Name: jc.Name, Type: ct}
	}
	return storage.NewTableSchema(j.TableName, cols)
}
