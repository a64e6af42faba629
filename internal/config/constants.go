package config

import (
	"path/filepath"
	"strings"
)

const SourceFileExt = ".kite"

// PackageMainFile is loaded when an import names a directory.
const PackageMainFile = "main" + SourceFileExt

// ProjectFileName is the project configuration looked up from the script
// directory upwards.
const ProjectFileName = "kite.yaml"

// SearchPathEnv lists extra module directories, separated by the OS list
// separator.
const SearchPathEnv = "KITE_PATH"

// Built-in function names
const (
	PrintFuncName      = "print"
	TypeFuncName       = "type"
	SizeFuncName       = "size"
	AssertFuncName     = "assert"
	AssertEqFuncName   = "assert_eq"
	AssertNeFuncName   = "assert_ne"
	AssertNearFuncName = "assert_near"
)

// Core module names. Values of the matching type use them for method calls.
const (
	IteratorModule = "iterator"
	ListModule     = "list"
	MapModule      = "map"
	NumberModule   = "number"
	RangeModule    = "range"
	StringModule   = "string"
	TupleModule    = "tuple"
	IOModule       = "io"
	KiteModule     = "kite"
)

// Entry point metakeys
const (
	MainEntry     = "@main"
	TestEntry     = "@test"
	PreTestEntry  = "@pre_test"
	PostTestEntry = "@post_test"
)

// VM limits
const (
	// MaxFrameCount bounds the call depth of one fiber.
	MaxFrameCount = 4096
	// MaxNestedRuns bounds native to script re-entry.
	MaxNestedRuns = 2000
	// MaxStackSize bounds the operand stack of one fiber.
	MaxStackSize = 1024 * 1024
	// ContextCheckInterval is how many instructions run between checks of
	// the VM's context.
	ContextCheckInterval = 1000
)

// TrimSourceExt removes the source extension for display.
func TrimSourceExt(path string) string {
	return strings.TrimSuffix(path, SourceFileExt)
}

// ModuleName is the display name of a script path.
func ModuleName(path string) string {
	return TrimSourceExt(filepath.Base(path))
}
