package core

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/funvibe/kite/internal/value"
)

// stdinReader is a shared buffered reader for stdin so repeated read_line
// calls don't lose buffered input.
var (
	stdinReader     *bufio.Reader
	stdinReaderOnce sync.Once
)

func getStdinReader() *bufio.Reader {
	stdinReaderOnce.Do(func() {
		stdinReader = bufio.NewReader(os.Stdin)
	})
	return stdinReader
}

// IOBuiltins returns the io module.
func IOBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"append_file": builtinAppendFile,
		"current_dir": builtinCurrentDir,
		"exists":      builtinExists,
		"print":       builtinPrint,
		"read_file":   builtinReadFile,
		"read_line":   builtinReadLine,
		"remove_file": builtinRemoveFile,
		"write_file":  builtinWriteFile,
	}
}

func pathArg(fn string, args []value.Value, n int) (string, error) {
	if err := value.CheckArgs(fn, args, n, n); err != nil {
		return "", err
	}
	return argString(fn, args, 0)
}

func builtinReadFile(rt value.Runtime, args []value.Value) (value.Value, error) {
	path, err := pathArg("read_file", args, 1)
	if err != nil {
		return value.Null, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Null, value.Errorf("read_file: %s", err)
	}
	return value.Str(string(data)), nil
}

func builtinWriteFile(rt value.Runtime, args []value.Value) (value.Value, error) {
	path, err := pathArg("write_file", args, 2)
	if err != nil {
		return value.Null, err
	}
	s, err := rt.Display(args[1])
	if err != nil {
		return value.Null, err
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return value.Null, value.Errorf("write_file: %s", err)
	}
	return value.Null, nil
}

func builtinAppendFile(rt value.Runtime, args []value.Value) (value.Value, error) {
	path, err := pathArg("append_file", args, 2)
	if err != nil {
		return value.Null, err
	}
	s, err := rt.Display(args[1])
	if err != nil {
		return value.Null, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return value.Null, value.Errorf("append_file: %s", err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		return value.Null, value.Errorf("append_file: %s", err)
	}
	return value.Null, nil
}

func builtinExists(rt value.Runtime, args []value.Value) (value.Value, error) {
	path, err := pathArg("exists", args, 1)
	if err != nil {
		return value.Null, err
	}
	_, err = os.Stat(path)
	return value.Bool(err == nil), nil
}

func builtinRemoveFile(rt value.Runtime, args []value.Value) (value.Value, error) {
	path, err := pathArg("remove_file", args, 1)
	if err != nil {
		return value.Null, err
	}
	if err := os.Remove(path); err != nil {
		return value.Null, value.Errorf("remove_file: %s", err)
	}
	return value.Null, nil
}

func builtinCurrentDir(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("current_dir", args, 0, 0); err != nil {
		return value.Null, err
	}
	dir, err := os.Getwd()
	if err != nil {
		return value.Null, value.Errorf("current_dir: %s", err)
	}
	return value.Str(dir), nil
}

// builtinReadLine returns the next line of stdin without its line ending,
// or null at end of input.
func builtinReadLine(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("read_line", args, 0, 0); err != nil {
		return value.Null, err
	}
	line, err := getStdinReader().ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return value.Str(line), nil
		}
		if errors.Is(err, io.EOF) {
			return value.Null, nil
		}
		return value.Null, value.Errorf("read_line: %s", err)
	}
	return value.Str(strings.TrimRight(line, "\r\n")), nil
}
