package vm

import "github.com/aalyth/lunaris-go/internal/storage"

// Op identifies an instruction's opcode. Rather than one Go type per Rust
// enum variant (which would force a type-switch in both the dispatcher
// and every patch site), a single Instruction struct carries an Op
// discriminant plus the union of fields any opcode needs — simpler patch
// logic at the cost of a few always-unused fields per instruction, a
// trade a register-machine bytecode format already makes on-disk.
//
// Grounded on original_source/server/src/vm/bytecode.rs.
type Op int

const (
	OpInit Op = iota
	OpGoto
	OpHalt

	OpOpenReadCursor
	OpOpenReadWriteCursor
	OpRewindCursor
	OpCursorAdvance
	OpCloseCursor

	OpInteger
	OpFloat
	OpString
	OpBool
	OpNull

	OpReadColumn
	OpReadRowID

	OpWriteResultRow

	OpJeq
	OpJne
	OpJlt
	OpJle
	OpJgt
	OpJge

	OpCreateRecord
	OpInsertRecord
	OpDeleteRow

	OpCreateTable
)

// Instruction is one bytecode instruction. Field meaning depends on Op:
//
//   Init, Goto                 Target
//   OpenRead(Write)Cursor      Cursor, Table
//   RewindCursor               Cursor, Target (empty_target)
//   CursorAdvance              Cursor, Target (loop_target)
//   CloseCursor                Cursor
//   Integer/Float/String/Bool  Reg, Int/Float/Str/Bool
//   Null                       Reg
//   ReadColumn                 Cursor, ColIndex, Reg
//   ReadRowID                  Cursor, Reg
//   WriteResultRow             Start, Count
//   Jeq..Jge                   Left, Right, Target
//   CreateRecord               Start, Count
//   InsertRecord               Cursor, KeyReg
//   DeleteRow                  Cursor
//   CreateTable                Schema
type Instruction struct {
	Op Op

	Target int

	Cursor   int
	Table    string
	ColIndex int

	Reg   int
	Left  int
	Right int

	Start int
	Count int

	KeyReg int

	Int   int64
	Float float64
	Str   string
	Bool  bool

	Schema storage.TableSchema
}

// Program is a flat, patchable instruction sequence. ResultColumns names
// the projected columns for a SELECT program, in projection order; it is
// empty for statements that don't produce a result set.
type Program struct {
	Instructions  []Instruction
	ResultColumns []string
}

// Emit appends ins and returns its address.
func (p *Program) Emit(ins Instruction) int {
	p.Instructions = append(p.Instructions, ins)
	return len(p.Instructions) - 1
}

// CurrentAddr returns the address the next Emit will use.
func (p *Program) CurrentAddr() int {
	return len(p.Instructions)
}

// UpdateTarget patches the Target field of the instruction at addr — used
// to back-patch jump targets once the destination address is known.
func (p *Program) UpdateTarget(addr int, target int) {
	p.Instructions[addr].Target = target
}
