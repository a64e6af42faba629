package core

import (
	"path/filepath"

	"github.com/funvibe/kite/internal/value"
)

// KiteBuiltins returns the kite module, reflection over the running
// script.
func KiteBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"args":        builtinKiteArgs,
		"exports":     builtinKiteExports,
		"script_dir":  builtinKiteScriptDir,
		"script_path": builtinKiteScriptPath,
		"type":        builtinType,
	}
}

// builtinKiteArgs returns the script arguments as a Tuple.
func builtinKiteArgs(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("args", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.TupleOf(rt.Args()...), nil
}

// builtinKiteExports returns the export map of the calling module.
func builtinKiteExports(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("exports", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.FromMap(rt.Exports()), nil
}

// builtinKiteScriptDir returns the directory of the running script, or null
// when it has no path.
func builtinKiteScriptDir(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("script_dir", args, 0, 0); err != nil {
		return value.Null, err
	}
	path := rt.ScriptPath()
	if path == "" {
		return value.Null, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return value.Null, value.Errorf("script_dir: %s", err)
	}
	return value.Str(filepath.Dir(abs)), nil
}

func builtinKiteScriptPath(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("script_path", args, 0, 0); err != nil {
		return value.Null, err
	}
	path := rt.ScriptPath()
	if path == "" {
		return value.Null, nil
	}
	return value.Str(path), nil
}
