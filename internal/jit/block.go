package jit

import "github.com/gogpu/shaderjit/wide"

// blockID indexes Routine.blocks. exit ends the run.
type blockID = int32

const exit blockID = -1

// block is a straight-line run of operations followed by a terminator.
type block struct {
	ops  []func(*Registers)
	next func(*Registers) blockID
}

// builder assembles the block graph while the compiler walks a function
// body in program order.
type builder struct {
	blocks []block
	at     map[int]blockID // block starting at an instruction
	cur    blockID
}

func newBuilder() *builder {
	return &builder{at: make(map[int]blockID), cur: exit}
}

// newBlock creates a block that does not start at any instruction.
func (b *builder) newBlock() blockID {
	b.blocks = append(b.blocks, block{})
	return blockID(len(b.blocks) - 1)
}

// blockAt returns the block starting at instruction pc, creating it on
// first use.
func (b *builder) blockAt(pc int) blockID {
	if id, ok := b.at[pc]; ok {
		return id
	}
	id := b.newBlock()
	b.at[pc] = id
	return id
}

// bind makes id the block starting at pc.
func (b *builder) bind(pc int, id blockID) {
	b.at[pc] = id
}

// begin switches emission to id. An unterminated current block falls
// through into it.
func (b *builder) begin(id blockID) {
	if b.cur >= 0 && b.cur != id && b.blocks[b.cur].next == nil {
		b.blocks[b.cur].next = jump(id)
	}
	b.cur = id
}

// emit appends op to the current block.
func (b *builder) emit(op func(*Registers)) {
	b.blocks[b.cur].ops = append(b.blocks[b.cur].ops, op)
}

// end sets the terminator of the current block.
func (b *builder) end(next func(*Registers) blockID) {
	b.blocks[b.cur].next = next
}

// terminate ends the current block with next. Code that follows starts
// in the block of instruction pc.
func (b *builder) terminate(next func(*Registers) blockID, pc int) {
	b.end(next)
	b.cur = b.blockAt(pc)
}

// seal gives every block still lacking a terminator an exit.
func (b *builder) seal() {
	for i := range b.blocks {
		if b.blocks[i].next == nil {
			b.blocks[i].next = jump(exit)
		}
	}
}

func jump(id blockID) func(*Registers) blockID {
	return func(*Registers) blockID { return id }
}

// branchAny continues at then when mask(r) has a lane set, at els otherwise.
func branchAny(mask func(*Registers) wide.U32x4, then, els blockID) func(*Registers) blockID {
	return func(r *Registers) blockID {
		if mask(r).Any() {
			return then
		}
		return els
	}
}

func branch(cond func(*Registers) bool, then, els blockID) func(*Registers) blockID {
	return func(r *Registers) blockID {
		if cond(r) {
			return then
		}
		return els
	}
}
