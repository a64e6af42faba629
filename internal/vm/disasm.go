package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/kite/internal/value"
)

// Disassemble returns a human-readable representation of the bytecode,
// followed by the listings of nested functions.
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder
	disassembleChunk(&sb, chunk, name)
	return sb.String()
}

func disassembleChunk(sb *strings.Builder, chunk *Chunk, name string) {
	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(sb, chunk, offset)
	}

	for _, fn := range chunk.Functions {
		sb.WriteByte('\n')
		disassembleChunk(sb, fn.Chunk, fn.Name)
	}
}

// disassembleInstruction writes a single instruction and returns the
// offset of the next one.
func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	// Print line number
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	name, ok := OpcodeNames[op]
	if !ok {
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}
	sb.WriteString(fmt.Sprintf("%-18s", name))

	next := offset + 1
	for _, width := range operandWidths[op] {
		if next+width > len(chunk.Code) {
			sb.WriteString(" <truncated>\n")
			return len(chunk.Code)
		}
		n := int(chunk.Code[next])
		if width == 2 {
			n = chunk.ReadU16(next)
		}
		sb.WriteString(fmt.Sprintf(" %4d", n))
		next += width
	}

	switch op {
	case OP_CONST, OP_GET_GLOBAL, OP_MAP_ENTRY, OP_MAP_META, OP_FORMAT, OP_GET_FIELD,
		OP_SET_FIELD, OP_INVOKE, OP_IMPORT, OP_SET_EXPORT, OP_SET_MODULE_META, OP_DEBUG:
		idx := chunk.ReadU16(offset + 1)
		if idx < len(chunk.Constants) {
			c := chunk.Constants[idx]
			if c.IsString() {
				sb.WriteString(" '" + c.AsString() + "'")
			} else {
				sb.WriteString(" " + value.Display(c))
			}
		}
	case OP_CLOSURE:
		idx := chunk.ReadU16(offset + 1)
		if idx < len(chunk.Functions) {
			sb.WriteString(" <fn " + chunk.Functions[idx].Name + ">")
		}
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_FALSE_KEEP, OP_JUMP_IF_TRUE_KEEP:
		sb.WriteString(fmt.Sprintf(" -> %d", next+chunk.ReadU16(offset+1)))
	case OP_LOOP:
		sb.WriteString(fmt.Sprintf(" -> %d", next-chunk.ReadU16(offset+1)))
	case OP_ITER_NEXT:
		sb.WriteString(fmt.Sprintf(" -> %d", next+chunk.ReadU16(offset+2)))
	case OP_GET_LOCAL, OP_SET_LOCAL:
		slot := int(chunk.Code[offset+1])
		if slot < len(chunk.Locals) && chunk.Locals[slot] != "" {
			sb.WriteString(" " + chunk.Locals[slot])
		}
	}
	sb.WriteByte('\n')
	return next
}
