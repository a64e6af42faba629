// Package vm implements the Kite bytecode compiler and virtual machine.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // u16 constant index
	OP_NULL                // Push null
	OP_TRUE                // Push true
	OP_FALSE               // Push false
	OP_POP                 // Discard top of stack
	OP_DUP                 // Duplicate top of stack
	OP_DUP2                // [a, b] -> [a, b, a, b]
	OP_SWAP                // [a, b] -> [b, a]

	// Variables
	OP_GET_LOCAL   // u8 slot
	OP_SET_LOCAL   // u8 slot, leaves the value on the stack
	OP_GET_UPVALUE // u8 index
	OP_SET_UPVALUE // u8 index, leaves the value on the stack
	OP_GET_GLOBAL  // u16 name constant: module export, then prelude
	OP_CLOSURE     // u16 function prototype index

	// Arithmetic
	OP_ADD    // +
	OP_SUB    // -
	OP_MUL    // *
	OP_DIV    // /
	OP_REM    // %
	OP_POW    // ^
	OP_NEGATE // Unary minus
	OP_NOT    // not

	// Comparison
	OP_EQUAL      // ==
	OP_NOT_EQUAL  // !=
	OP_LESS       // <
	OP_LESS_EQ    // <=
	OP_GREATER    // >
	OP_GREATER_EQ // >=

	// Control flow
	OP_JUMP               // u16 forward offset
	OP_JUMP_IF_FALSE      // u16 forward offset, pops the condition
	OP_JUMP_IF_FALSE_KEEP // u16 forward offset, keeps the condition
	OP_JUMP_IF_TRUE_KEEP  // u16 forward offset, keeps the condition
	OP_LOOP               // u16 backward offset
	OP_SAVE_SP            // u8 slot: store the operand stack height
	OP_RESTORE_SP         // u8 slot: drop operands above the saved height

	// Construction
	OP_LIST       // u16 count
	OP_TUPLE      // u16 count
	OP_NEW_MAP    // Push an empty map
	OP_MAP_ENTRY  // u16 key constant: [map, v] -> [map]
	OP_MAP_INSERT // [map, k, v] -> [map]
	OP_MAP_META   // u16 metakey constant: [map, v] -> [map]
	OP_RANGE      // u8 flags: rangeHasStart | rangeHasEnd | rangeInclusive
	OP_STRING     // u16 count: display and concatenate
	OP_FORMAT     // u16 format constant: format the top value

	// Access
	OP_GET_FIELD // u16 name constant
	OP_SET_FIELD // u16 name constant: [obj, v] -> [v]
	OP_GET_INDEX // [obj, idx] -> [v]
	OP_SET_INDEX // [obj, idx, v] -> [v]

	// Calls
	OP_CALL   // u8 argument count
	OP_INVOKE // u16 name constant, u8 argument count
	OP_RETURN // Return top of stack
	OP_YIELD  // Suspend the generator with the top of the stack

	// Iteration
	OP_ITER      // Replace the top value with an iterator over it
	OP_ITER_NEXT // u8 iterator slot, u16 exit offset

	// Exceptions
	OP_THROW           // Throw top of stack
	OP_TRY_START       // u16 catch offset, u16 finally offset (noTarget when absent)
	OP_TRY_END         // Pop the innermost handler
	OP_ENTER_FINALLY   // Pop the try value into a pending normal completion
	OP_FINALLY_EXIT    // Resume the pending completion
	OP_DISCARD_PENDING // Drop the pending completion when a finally block is left early

	// Patterns
	OP_MATCH_SEQ    // u8 kind, u8 count, u8 hasRest: pop value, push bool
	OP_CHECK_SEQ    // u8 kind, u8 count, u8 hasRest: throw unless the top value fits
	OP_GET_ELEM     // u8 index from the start
	OP_GET_ELEM_END // u8 index from the end
	OP_SLICE_FROM   // u8 start, u8 trailing: sequence slice
	OP_GET_UNPACKED // u8 index: positional element, null when missing
	OP_NO_MATCH     // Fail a match expression

	// Modules
	OP_IMPORT          // u16 path constant
	OP_SET_EXPORT      // u16 name constant, leaves the value on the stack
	OP_EXPORT_MAP      // Merge the top map into the exports
	OP_EXPORT_ITER     // Export every (name, value) pair of the top value
	OP_SET_MODULE_META // u16 metakey constant, leaves the value on the stack

	OP_DEBUG // u16 source constant: print source and value
)

// Range flags
const (
	rangeHasStart byte = 1 << iota
	rangeHasEnd
	rangeInclusive
)

// Sequence pattern kinds
const (
	seqTuple byte = iota
	seqList
	seqAny
)

// noTarget marks an absent catch or finally block in OP_TRY_START.
const noTarget = 0xffff

// OpcodeNames maps opcodes to their names for debugging
var OpcodeNames = map[Opcode]string{
	OP_CONST:              "CONST",
	OP_NULL:               "NULL",
	OP_TRUE:               "TRUE",
	OP_FALSE:              "FALSE",
	OP_POP:                "POP",
	OP_DUP:                "DUP",
	OP_DUP2:               "DUP2",
	OP_SWAP:               "SWAP",
	OP_GET_LOCAL:          "GET_LOCAL",
	OP_SET_LOCAL:          "SET_LOCAL",
	OP_GET_UPVALUE:        "GET_UPVALUE",
	OP_SET_UPVALUE:        "SET_UPVALUE",
	OP_GET_GLOBAL:         "GET_GLOBAL",
	OP_CLOSURE:            "CLOSURE",
	OP_ADD:                "ADD",
	OP_SUB:                "SUB",
	OP_MUL:                "MUL",
	OP_DIV:                "DIV",
	OP_REM:                "REM",
	OP_POW:                "POW",
	OP_NEGATE:             "NEGATE",
	OP_NOT:                "NOT",
	OP_EQUAL:              "EQUAL",
	OP_NOT_EQUAL:          "NOT_EQUAL",
	OP_LESS:               "LESS",
	OP_LESS_EQ:            "LESS_EQ",
	OP_GREATER:            "GREATER",
	OP_GREATER_EQ:         "GREATER_EQ",
	OP_JUMP:               "JUMP",
	OP_JUMP_IF_FALSE:      "JUMP_IF_FALSE",
	OP_JUMP_IF_FALSE_KEEP: "JUMP_IF_FALSE_KEEP",
	OP_JUMP_IF_TRUE_KEEP:  "JUMP_IF_TRUE_KEEP",
	OP_LOOP:               "LOOP",
	OP_SAVE_SP:            "SAVE_SP",
	OP_RESTORE_SP:         "RESTORE_SP",
	OP_LIST:               "LIST",
	OP_TUPLE:              "TUPLE",
	OP_NEW_MAP:            "NEW_MAP",
	OP_MAP_ENTRY:          "MAP_ENTRY",
	OP_MAP_INSERT:         "MAP_INSERT",
	OP_MAP_META:           "MAP_META",
	OP_RANGE:              "RANGE",
	OP_STRING:             "STRING",
	OP_FORMAT:             "FORMAT",
	OP_GET_FIELD:          "GET_FIELD",
	OP_SET_FIELD:          "SET_FIELD",
	OP_GET_INDEX:          "GET_INDEX",
	OP_SET_INDEX:          "SET_INDEX",
	OP_CALL:               "CALL",
	OP_INVOKE:             "INVOKE",
	OP_RETURN:             "RETURN",
	OP_YIELD:              "YIELD",
	OP_ITER:               "ITER",
	OP_ITER_NEXT:          "ITER_NEXT",
	OP_THROW:              "THROW",
	OP_TRY_START:          "TRY_START",
	OP_TRY_END:            "TRY_END",
	OP_ENTER_FINALLY:      "ENTER_FINALLY",
	OP_FINALLY_EXIT:       "FINALLY_EXIT",
	OP_DISCARD_PENDING:    "DISCARD_PENDING",
	OP_MATCH_SEQ:          "MATCH_SEQ",
	OP_CHECK_SEQ:          "CHECK_SEQ",
	OP_GET_ELEM:           "GET_ELEM",
	OP_GET_ELEM_END:       "GET_ELEM_END",
	OP_SLICE_FROM:         "SLICE_FROM",
	OP_GET_UNPACKED:       "GET_UNPACKED",
	OP_NO_MATCH:           "NO_MATCH",
	OP_IMPORT:             "IMPORT",
	OP_SET_EXPORT:         "SET_EXPORT",
	OP_EXPORT_MAP:         "EXPORT_MAP",
	OP_EXPORT_ITER:        "EXPORT_ITER",
	OP_SET_MODULE_META:    "SET_MODULE_META",
	OP_DEBUG:              "DEBUG",
}

// operandWidths lists the operand bytes following each opcode.
var operandWidths = map[Opcode][]int{
	OP_CONST:              {2},
	OP_GET_LOCAL:          {1},
	OP_SET_LOCAL:          {1},
	OP_GET_UPVALUE:        {1},
	OP_SET_UPVALUE:        {1},
	OP_GET_GLOBAL:         {2},
	OP_CLOSURE:            {2},
	OP_JUMP:               {2},
	OP_JUMP_IF_FALSE:      {2},
	OP_JUMP_IF_FALSE_KEEP: {2},
	OP_JUMP_IF_TRUE_KEEP:  {2},
	OP_LOOP:               {2},
	OP_SAVE_SP:            {1},
	OP_RESTORE_SP:         {1},
	OP_LIST:               {2},
	OP_TUPLE:              {2},
	OP_MAP_ENTRY:          {2},
	OP_MAP_META:           {2},
	OP_RANGE:              {1},
	OP_STRING:             {2},
	OP_FORMAT:             {2},
	OP_GET_FIELD:          {2},
	OP_SET_FIELD:          {2},
	OP_CALL:               {1},
	OP_INVOKE:             {2, 1},
	OP_ITER_NEXT:          {1, 2},
	OP_TRY_START:          {2, 2},
	OP_MATCH_SEQ:          {1, 1, 1},
	OP_CHECK_SEQ:          {1, 1, 1},
	OP_GET_ELEM:           {1},
	OP_GET_ELEM_END:       {1},
	OP_SLICE_FROM:         {1, 1},
	OP_GET_UNPACKED:       {1},
	OP_IMPORT:             {2},
	OP_SET_EXPORT:         {2},
	OP_SET_MODULE_META:    {2},
	OP_DEBUG:              {2},
}
