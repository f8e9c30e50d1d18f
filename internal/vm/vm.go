package vm

import (
	"fmt"

	"github.com/aalyth/lunaris-go/internal/dberr"
	"github.com/aalyth/lunaris-go/internal/storage"
	"github.com/aalyth/lunaris-go/internal/value"
)

// Database is the facade the VM drives to touch durable state. It exists
// so internal/vm never imports the facade package directly — the facade
// implements this interface instead, breaking what would otherwise be an
// import cycle (facade calls into the VM to run a Program; the VM calls
// back into the facade to reach storage). Grounded on the division of
// responsibility in original_source/server/src/database.rs.
//
// Every method that reaches into a single table's B+ tree acquires that
// table's mutex only for its own duration (spec.md §5) — WithTableMut is
// called once per instruction, never held across a whole program.
type Database interface {
	GetSchema(table string) (storage.TableSchema, error)
	CreateTable(schema storage.TableSchema) error
	InsertRow(table string, key uint64, values []value.Value) error
	WithTableMut(table string, fn func(tree *storage.BTree) error) error
}

// runtimeCursor tracks one VM cursor's live storage.Cursor plus the
// bookkeeping CursorAdvance needs to cooperate with a preceding DeleteRow
// (see CursorAdvance's handling of justDeleted below).
type runtimeCursor struct {
	table string
	cur   *storage.Cursor

	justDeleted   bool
	deleteHasMore bool
}

// Lvm is one bytecode execution: its register file, open cursors, and the
// result-set/row-count/message accumulators a run produces. Grounded on
// original_source/server/src/vm/vm.rs.
type Lvm struct {
	pc        int
	halted    bool
	registers []value.Value
	cursors   map[int]*runtimeCursor

	resultRows    [][]value.Value
	pendingValues []value.Value
	rowsAffected  int64
}

// New returns a freshly initialized Lvm with the starting register file
// size spec.md §4.9 names.
func New() *Lvm {
	regs := make([]value.Value, storage.VMStartingRegisters)
	for i := range regs {
		regs[i] = value.NewNull()
	}
	return &Lvm{registers: regs, cursors: make(map[int]*runtimeCursor)}
}

// ExecutionResult is what running a Program against a Database produces.
type ExecutionResult struct {
	Columns      []string
	Rows         [][]value.Value
	RowsAffected int64
	Message      string
}

// Execute runs program to completion against db and returns its result.
func Execute(db Database, program *Program) (*ExecutionResult, error) {
	m := New()
	for !m.halted {
		if m.pc < 0 || m.pc >= len(program.Instructions) {
			return nil, dberr.VMf("program counter out of bounds: %d", m.pc)
		}
		ins := program.Instructions[m.pc]
		next, err := m.executeInstr(db, ins)
		if err != nil {
			return nil, err
		}
		m.pc = next
	}

	return &ExecutionResult{
		Columns:      program.ResultColumns,
		Rows:         m.resultRows,
		RowsAffected: m.rowsAffected,
		Message:      m.message(program),
	}, nil
}

func (m *Lvm) message(program *Program) string {
	switch {
	case len(program.ResultColumns) > 0:
		return fmt.Sprintf("%d row(s) returned", len(m.resultRows))
	case m.rowsAffected > 0 || isMutatingProgram(program):
		return fmt.Sprintf("%d row(s) affected", m.rowsAffected)
	default:
		return "OK"
	}
}

func isMutatingProgram(program *Program) bool {
	for _, ins := range program.Instructions {
		if ins.Op == OpInsertRecord || ins.Op == OpDeleteRow {
			return true
		}
	}
	return false
}

func (m *Lvm) ensureReg(n int) {
	for len(m.registers) <= n {
		m.registers = append(m.registers, value.NewNull())
	}
}

func (m *Lvm) setReg(n int, v value.Value) {
	m.ensureReg(n)
	m.registers[n] = v
}

func (m *Lvm) getReg(n int) value.Value {
	if n < 0 || n >= len(m.registers) {
		return value.NewNull()
	}
	return m.registers[n]
}

func (m *Lvm) cursor(id int) (*runtimeCursor, error) {
	rc, ok := m.cursors[id]
	if !ok {
		return nil, dberr.VMf("no open cursor %d", id)
	}
	return rc, nil
}

// executeInstr runs a single instruction and returns the next pc.
func (m *Lvm) executeInstr(db Database, ins Instruction) (int, error) {
	switch ins.Op {
	case OpInit:
		return ins.Target, nil

	case OpGoto:
		return ins.Target, nil

	case OpHalt:
		m.halted = true
		return m.pc, nil

	case OpOpenReadCursor, OpOpenReadWriteCursor:
		schema, err := db.GetSchema(ins.Table)
		if err != nil {
			return 0, err
		}
		m.cursors[ins.Cursor] = &runtimeCursor{
			table: ins.Table,
			cur:   storage.NewCursor(schema),
		}
		return m.pc + 1, nil

	case OpRewindCursor:
		rc, err := m.cursor(ins.Cursor)
		if err != nil {
			return 0, err
		}
		var hasRow bool
		err = db.WithTableMut(rc.table, func(tree *storage.BTree) error {
			var innerErr error
			hasRow, innerErr = rc.cur.Rewind(tree)
			return innerErr
		})
		if err != nil {
			return 0, err
		}
		if !hasRow {
			return ins.Target, nil
		}
		return m.pc + 1, nil

	case OpCursorAdvance:
		rc, err := m.cursor(ins.Cursor)
		if err != nil {
			return 0, err
		}
		var hasMore bool
		if rc.justDeleted {
			hasMore = rc.deleteHasMore
			rc.justDeleted = false
		} else {
			err = db.WithTableMut(rc.table, func(tree *storage.BTree) error {
				var innerErr error
				hasMore, innerErr = rc.cur.Next(tree)
				return innerErr
			})
			if err != nil {
				return 0, err
			}
		}
		if hasMore {
			return ins.Target, nil
		}
		return m.pc + 1, nil

	case OpCloseCursor:
		delete(m.cursors, ins.Cursor)
		return m.pc + 1, nil

	case OpInteger:
		m.setReg(ins.Reg, value.NewInteger(ins.Int))
		return m.pc + 1, nil

	case OpFloat:
		m.setReg(ins.Reg, value.NewFloat(ins.Float))
		return m.pc + 1, nil

	case OpString:
		m.setReg(ins.Reg, value.NewText(ins.Str))
		return m.pc + 1, nil

	case OpBool:
		m.setReg(ins.Reg, value.NewBoolean(ins.Bool))
		return m.pc + 1, nil

	case OpNull:
		m.setReg(ins.Reg, value.NewNull())
		return m.pc + 1, nil

	case OpReadColumn:
		rc, err := m.cursor(ins.Cursor)
		if err != nil {
			return 0, err
		}
		var v value.Value
		err = db.WithTableMut(rc.table, func(tree *storage.BTree) error {
			var innerErr error
			v, innerErr = rc.cur.Column(tree, ins.ColIndex)
			return innerErr
		})
		if err != nil {
			return 0, err
		}
		m.setReg(ins.Reg, v)
		return m.pc + 1, nil

	case OpReadRowID:
		rc, err := m.cursor(ins.Cursor)
		if err != nil {
			return 0, err
		}
		var rowID uint64
		err = db.WithTableMut(rc.table, func(tree *storage.BTree) error {
			var innerErr error
			rowID, innerErr = rc.cur.RowID(tree)
			return innerErr
		})
		if err != nil {
			return 0, err
		}
		m.setReg(ins.Reg, value.NewInteger(int64(rowID)))
		return m.pc + 1, nil

	case OpWriteResultRow:
		row := make([]value.Value, ins.Count)
		for i := 0; i < ins.Count; i++ {
			row[i] = m.getReg(ins.Start + i)
		}
		m.resultRows = append(m.resultRows, row)
		return m.pc + 1, nil

	case OpJeq, OpJne, OpJlt, OpJle, OpJgt, OpJge:
		left := m.getReg(ins.Left)
		right := m.getReg(ins.Right)
		ord, comparable := value.Compare(left, right)
		if !comparable {
			return m.pc + 1, nil
		}
		if compareSatisfies(ins.Op, ord) {
			return ins.Target, nil
		}
		return m.pc + 1, nil

	case OpCreateRecord:
		vals := make([]value.Value, ins.Count)
		for i := 0; i < ins.Count; i++ {
			vals[i] = m.getReg(ins.Start + i)
		}
		m.pendingValues = vals
		return m.pc + 1, nil

	case OpInsertRecord:
		rc, err := m.cursor(ins.Cursor)
		if err != nil {
			return 0, err
		}
		keyVal := m.getReg(ins.KeyReg)
		if keyVal.Kind != value.Integer {
			return 0, dberr.VMf("insert key register does not hold an integer")
		}
		if err := db.InsertRow(rc.table, uint64(keyVal.I), m.pendingValues); err != nil {
			return 0, err
		}
		m.rowsAffected++
		return m.pc + 1, nil

	case OpDeleteRow:
		rc, err := m.cursor(ins.Cursor)
		if err != nil {
			return 0, err
		}
		var hasMore bool
		err = db.WithTableMut(rc.table, func(tree *storage.BTree) error {
			var innerErr error
			hasMore, innerErr = rc.cur.DeleteCurrent(tree)
			if innerErr != nil {
				return innerErr
			}
			return tree.Flush()
		})
		if err != nil {
			return 0, err
		}
		rc.justDeleted = true
		rc.deleteHasMore = hasMore
		m.rowsAffected++
		return m.pc + 1, nil

	case OpCreateTable:
		if err := db.CreateTable(ins.Schema); err != nil {
			return 0, err
		}
		return m.pc + 1, nil

	default:
		return 0, dberr.VMf("unknown opcode %d", ins.Op)
	}
}

func compareSatisfies(op Op, ord value.Ordering) bool {
	switch op {
	case OpJeq:
		return ord == value.Equal
	case OpJne:
		return ord != value.Equal
	case OpJlt:
		return ord == value.Less
	case OpJle:
		return ord == value.Less || ord == value.Equal
	case OpJgt:
		return ord == value.Greater
	case OpJge:
		return ord == value.Greater || ord == value.Equal
	default:
		return false
	}
}
