package vm

import (
	"github.com/aalyth/lunaris-go/internal/catalog"
	"github.com/aalyth/lunaris-go/internal/dberr"
	"github.com/aalyth/lunaris-go/internal/storage"
)

const (
	regWhereLeft  = 1
	regWhereRight = 2
	regInsertBase = 1 // the row's first column doubles as its B+ tree key
	regSelectBase = 32
	cursor0       = 0
)

// Compile lowers a parsed Statement into a Program, consulting cat for
// schema lookups (SELECT/INSERT/DELETE against an existing table). CREATE
// TABLE does not consult cat; a duplicate table name is rejected when the
// program's CreateTable instruction runs. Grounded on
// original_source/server/src/vm/compiler.rs.
func Compile(stmt Statement, cat *catalog.Catalog) (*Program, error) {
	switch s := stmt.(type) {
	case CreateTableStmt:
		return compileCreateTable(s)
	case InsertStmt:
		return compileInsert(s, cat)
	case SelectStmt:
		return compileSelect(s, cat)
	case DeleteStmt:
		return compileDelete(s, cat)
	default:
		return nil, dberr.Compilef("unsupported statement type")
	}
}

// emitPrologue emits the Init/Halt pair every program starts with and
// returns the Init instruction's address for later patching to the real
// body start.
func emitPrologue(prog *Program) int {
	initAddr := prog.Emit(Instruction{Op: OpInit})
	prog.Emit(Instruction{Op: OpHalt})
	return initAddr
}

func compileCreateTable(s CreateTableStmt) (*Program, error) {
	prog := &Program{}
	initAddr := emitPrologue(prog)
	prog.UpdateTarget(initAddr, prog.CurrentAddr())

	schema := storage.NewTableSchema(s.Table, s.Columns)
	prog.Emit(Instruction{Op: OpCreateTable, Schema: schema})
	prog.Emit(Instruction{Op: OpHalt})
	return prog, nil
}

func compileInsert(s InsertStmt, cat *catalog.Catalog) (*Program, error) {
	schema, err := cat.GetSchema(s.Table)
	if err != nil {
		return nil, err
	}

	prog := &Program{}
	initAddr := emitPrologue(prog)
	prog.UpdateTarget(initAddr, prog.CurrentAddr())

	prog.Emit(Instruction{Op: OpOpenReadWriteCursor, Cursor: cursor0, Table: s.Table})

	// The first column of each row is the table's key: spec.md §8's scenario
	// 4 inserts VALUES (1, 'c') against a table already holding key 1 and
	// expects a DuplicateKey error, so INSERT never allocates a fresh row id
	// of its own — it reuses the first column's literal value as the key.
	for _, row := range s.Rows {
		if len(row) != len(schema.Columns) {
			return nil, dberr.NewValueCountMismatch(len(schema.Columns), len(row))
		}
		for i, operand := range row {
			if err := emitLiteral(prog, operand, regInsertBase+i); err != nil {
				return nil, err
			}
		}
		prog.Emit(Instruction{Op: OpCreateRecord, Start: regInsertBase, Count: len(row)})
		prog.Emit(Instruction{Op: OpInsertRecord, Cursor: cursor0, KeyReg: regInsertBase})
	}

	prog.Emit(Instruction{Op: OpCloseCursor, Cursor: cursor0})
	prog.Emit(Instruction{Op: OpHalt})
	return prog, nil
}

func compileSelect(s SelectStmt, cat *catalog.Catalog) (*Program, error) {
	schema, err := cat.GetSchema(s.Table)
	if err != nil {
		return nil, err
	}
	cols, names, err := resolveProjection(schema, s.Wildcard, s.Columns)
	if err != nil {
		return nil, err
	}

	prog := &Program{}
	initAddr := emitPrologue(prog)
	prog.UpdateTarget(initAddr, prog.CurrentAddr())

	prog.Emit(Instruction{Op: OpOpenReadCursor, Cursor: cursor0, Table: s.Table})
	rewindAddr := prog.Emit(Instruction{Op: OpRewindCursor, Cursor: cursor0})
	loopTop := prog.CurrentAddr()

	var skipExits []int
	if s.Where != nil {
		skipExits, err = emitWhereSkip(prog, s.Where, schema)
		if err != nil {
			return nil, err
		}
	}

	for i, colIdx := range cols {
		prog.Emit(Instruction{Op: OpReadColumn, Cursor: cursor0, ColIndex: colIdx, Reg: regSelectBase + i})
	}
	prog.Emit(Instruction{Op: OpWriteResultRow, Start: regSelectBase, Count: len(cols)})

	advanceAddr := prog.Emit(Instruction{Op: OpCursorAdvance, Cursor: cursor0, Target: loopTop})
	for _, addr := range skipExits {
		prog.UpdateTarget(addr, advanceAddr)
	}

	closeAddr := prog.CurrentAddr()
	prog.UpdateTarget(rewindAddr, closeAddr)
	prog.Emit(Instruction{Op: OpCloseCursor, Cursor: cursor0})
	prog.Emit(Instruction{Op: OpHalt})

	prog.ResultColumns = names
	return prog, nil
}

func compileDelete(s DeleteStmt, cat *catalog.Catalog) (*Program, error) {
	schema, err := cat.GetSchema(s.Table)
	if err != nil {
		return nil, err
	}

	prog := &Program{}
	initAddr := emitPrologue(prog)
	prog.UpdateTarget(initAddr, prog.CurrentAddr())

	prog.Emit(Instruction{Op: OpOpenReadWriteCursor, Cursor: cursor0, Table: s.Table})
	rewindAddr := prog.Emit(Instruction{Op: OpRewindCursor, Cursor: cursor0})
	loopTop := prog.CurrentAddr()

	var skipExits []int
	if s.Where != nil {
		skipExits, err = emitWhereSkip(prog, s.Where, schema)
		if err != nil {
			return nil, err
		}
	}

	prog.Emit(Instruction{Op: OpDeleteRow, Cursor: cursor0})

	advanceAddr := prog.Emit(Instruction{Op: OpCursorAdvance, Cursor: cursor0, Target: loopTop})
	for _, addr := range skipExits {
		prog.UpdateTarget(addr, advanceAddr)
	}

	closeAddr := prog.CurrentAddr()
	prog.UpdateTarget(rewindAddr, closeAddr)
	prog.Emit(Instruction{Op: OpCloseCursor, Cursor: cursor0})
	prog.Emit(Instruction{Op: OpHalt})

	return prog, nil
}

// resolveProjection expands `*` to every column in declared order, or
// resolves each requested (case-insensitive) column name to its index.
func resolveProjection(schema storage.TableSchema, wildcard bool, names []string) ([]int, []string, error) {
	if wildcard {
		idx := make([]int, len(schema.Columns))
		colNames := make([]string, len(schema.Columns))
		for i, c := range schema.Columns {
			idx[i] = i
			colNames[i] = c.Name
		}
		return idx, colNames, nil
	}
	idx := make([]int, len(names))
	colNames := make([]string, len(names))
	for i, n := range names {
		ci := schema.FindColumn(n)
		if ci < 0 {
			return nil, nil, dberr.NewColumnNotFound(n)
		}
		idx[i] = ci
		colNames[i] = schema.Columns[ci].Name
	}
	return idx, colNames, nil
}

// emitLiteral writes operand's literal value into a fresh literal-load
// instruction targeting reg. Used for INSERT row values, which must be
// literals (never column references), and by emitOperand for literal
// WHERE operands.
func emitLiteral(prog *Program, op Operand, reg int) error {
	if op.Kind != OperandLiteral {
		return dberr.Compilef("INSERT values must be literals")
	}
	switch op.LiteralKind {
	case LitNull:
		prog.Emit(Instruction{Op: OpNull, Reg: reg})
	case LitInt:
		prog.Emit(Instruction{Op: OpInteger, Reg: reg, Int: op.Int})
	case LitFloat:
		prog.Emit(Instruction{Op: OpFloat, Reg: reg, Float: op.Float})
	case LitBool:
		prog.Emit(Instruction{Op: OpBool, Reg: reg, Bool: op.Bool})
	case LitString:
		prog.Emit(Instruction{Op: OpString, Reg: reg, Str: op.Str})
	default:
		return dberr.Compilef("unsupported literal kind")
	}
	return nil
}

// emitComparisonOperands loads a comparison's left/right operands into
// registers 1 and 2 — spec.md §4.8: "comparison operands use registers 1
// and 2".
func emitComparisonOperands(prog *Program, cmp Comparison, schema storage.TableSchema) error {
	if err := emitOperand(prog, cmp.Left, regWhereLeft, schema); err != nil {
		return err
	}
	return emitOperand(prog, cmp.Right, regWhereRight, schema)
}

func emitOperand(prog *Program, op Operand, reg int, schema storage.TableSchema) error {
	if op.Kind == OperandColumn {
		colIdx := schema.FindColumn(op.Column)
		if colIdx < 0 {
			return dberr.NewColumnNotFound(op.Column)
		}
		prog.Emit(Instruction{Op: OpReadColumn, Cursor: cursor0, ColIndex: colIdx, Reg: reg})
		return nil
	}
	return emitLiteral(prog, op, reg)
}

var inverseOp = map[CompareOp]CompareOp{
	OpEq: OpNe, OpNe: OpEq,
	OpLt: OpGe, OpGe: OpLt,
	OpLe: OpGt, OpGt: OpLe,
}

func jumpOpcode(op CompareOp) Op {
	switch op {
	case OpEq:
		return OpJeq
	case OpNe:
		return OpJne
	case OpLt:
		return OpJlt
	case OpLe:
		return OpJle
	case OpGt:
		return OpJgt
	case OpGe:
		return OpJge
	default:
		return OpJeq
	}
}

// emitComparisonJump loads the comparison operands then emits a jump
// instruction for op (or its inverse), returning the jump's address so
// the caller can patch its target.
func emitComparisonJump(prog *Program, cmp Comparison, inverse bool, schema storage.TableSchema) (int, error) {
	if err := emitComparisonOperands(prog, cmp, schema); err != nil {
		return 0, err
	}
	op := cmp.Op
	if inverse {
		op = inverseOp[op]
	}
	addr := prog.Emit(Instruction{Op: jumpOpcode(op), Left: regWhereLeft, Right: regWhereRight})
	return addr, nil
}

// emitWhereSkip lowers expr as "skip the row if false": for a bare
// comparison, the inverse jump IS the skip exit. For AND, both operands'
// skip exits are retargeted to a freshly emitted Goto, consolidating them
// into a single address the caller patches; a row that passes both
// operands falls through to a Goto that jumps over it. For OR, the first operand's
// positive ("pass") jump lands just past the second operand's skip check.
func emitWhereSkip(prog *Program, expr Expr, schema storage.TableSchema) ([]int, error) {
	switch e := expr.(type) {
	case Comparison:
		addr, err := emitComparisonJump(prog, e, true, schema)
		if err != nil {
			return nil, err
		}
		return []int{addr}, nil
	case And:
		leftExits, err := emitWhereSkip(prog, e.Left, schema)
		if err != nil {
			return nil, err
		}
		rightExits, err := emitWhereSkip(prog, e.Right, schema)
		if err != nil {
			return nil, err
		}
		bodyJump := prog.Emit(Instruction{Op: OpGoto})
		gotoAddr := prog.Emit(Instruction{Op: OpGoto})
		for _, addr := range leftExits {
			prog.UpdateTarget(addr, gotoAddr)
		}
		for _, addr := range rightExits {
			prog.UpdateTarget(addr, gotoAddr)
		}
		prog.UpdateTarget(bodyJump, prog.CurrentAddr())
		return []int{gotoAddr}, nil
	case Or:
		passExits, err := emitWherePass(prog, e.Left, schema)
		if err != nil {
			return nil, err
		}
		skipExits, err := emitWhereSkip(prog, e.Right, schema)
		if err != nil {
			return nil, err
		}
		landing := prog.CurrentAddr()
		for _, addr := range passExits {
			prog.UpdateTarget(addr, landing)
		}
		return skipExits, nil
	default:
		return nil, dberr.Compilef("unsupported WHERE expression")
	}
}

// emitWherePass lowers expr as "jump to the row body if true" — the dual
// of emitWhereSkip, used for OR's first operand and recursively for any
// nested AND/OR appearing there.
func emitWherePass(prog *Program, expr Expr, schema storage.TableSchema) ([]int, error) {
	switch e := expr.(type) {
	case Comparison:
		addr, err := emitComparisonJump(prog, e, false, schema)
		if err != nil {
			return nil, err
		}
		return []int{addr}, nil
	case And:
		localSkip, err := emitWhereSkip(prog, e.Left, schema)
		if err != nil {
			return nil, err
		}
		passExits, err := emitWherePass(prog, e.Right, schema)
		if err != nil {
			return nil, err
		}
		landing := prog.CurrentAddr()
		for _, addr := range localSkip {
			prog.UpdateTarget(addr, landing)
		}
		return passExits, nil
	case Or:
		leftExits, err := emitWherePass(prog, e.Left, schema)
		if err != nil {
			return nil, err
		}
		rightExits, err := emitWherePass(prog, e.Right, schema)
		if err != nil {
			return nil, err
		}
		return append(leftExits, rightExits...), nil
	default:
		return nil, dberr.Compilef("unsupported WHERE expression")
	}
}
