package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	// Nested functions get their own section.
	for _, constant := range chunk.Constants {
		if fn, ok := constant.Obj.(*CompiledFunction); constant.IsObj() && ok {
			sb.WriteString(Disassemble(fn.Chunk, fn.Name))
		}
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	name, ok := OpcodeNames[op]
	if !ok {
		sb.WriteString(fmt.Sprintf("UNKNOWN %d\n", op))
		return offset + 1
	}

	switch op {
	case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_CLASS, OP_METHOD, OP_GET_PROPERTY, OP_SET_PROPERTY:
		return constantInstruction(sb, name, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_INC_LOCAL,
		OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL, OP_OBJECT:
		return byteInstruction(sb, name, chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE:
		return jumpInstruction(sb, name, 1, chunk, offset)

	case OP_LOOP:
		return jumpInstruction(sb, name, -1, chunk, offset)

	case OP_ARRAY:
		count := chunk.ReadConstantIndex(offset + 1)
		sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, count))
		return offset + 3

	case OP_CLOSURE:
		idx := chunk.ReadConstantIndex(offset + 1)
		fn := chunk.Constants[idx].Obj.(*CompiledFunction)
		sb.WriteString(fmt.Sprintf("%-16s %4d <fn %s>\n", name, idx, fn.Name))
		next := offset + 3
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := chunk.Code[next]
			index := chunk.Code[next+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			sb.WriteString(fmt.Sprintf("%04d    |                     %s %d\n", next, kind, index))
			next += 2
		}
		return next

	default:
		return simpleInstruction(sb, name, offset)
	}
}

func simpleInstruction(sb *strings.Builder, name string, offset int) int {
	sb.WriteString(name)
	sb.WriteString("\n")
	return offset + 1
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := chunk.ReadConstantIndex(offset + 1)
	display := "?"
	if idx < len(chunk.Constants) {
		display = chunk.Constants[idx].Inspect()
	}
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, display))
	return offset + 3
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	operand := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, operand))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *Chunk, offset int) int {
	jump := chunk.ReadConstantIndex(offset + 1)
	target := offset + 3 + sign*jump
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, jump, target))
	return offset + 3
}
