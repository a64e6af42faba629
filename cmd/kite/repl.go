package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/vm"
	kite "github.com/funvibe/kite/pkg/embed"
)

const (
	historyFile = ".kite_history"
	promptMain  = "» "
	promptCont  = "… "
	replSource  = "<repl>"
)

// runREPL reads lines until EOF. Top-level assignments become exports of
// the REPL's main module, so bindings persist across lines.
func runREPL(engine *kite.Engine, out, errOut *painter) int {
	fmt.Fprintln(out.w, "Kite REPL. Type :quit or Ctrl-D to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(out.w)
			return 0
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return 0
			default:
				fmt.Fprintln(out.w, "unknown command. Type :quit to exit.")
			}
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		result, err := evalInterruptible(engine, code, sigc)
		if err != nil {
			reportError(errOut, err)
			continue
		}
		if result != "" {
			out.result(result)
		}
	}
}

// evalInterruptible runs a line, cancelling it on Ctrl-C.
func evalInterruptible(engine *kite.Engine, code string, sigc <-chan os.Signal) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigc:
			cancel()
		case <-done:
		}
	}()
	engine.SetContext(ctx)
	return evalLine(engine, code)
}

// evalLine compiles a line in REPL mode and runs it in the shared main
// module. A null result prints nothing.
func evalLine(engine *kite.Engine, code string) (string, error) {
	program, err := parser.Parse(code, replSource)
	if err != nil {
		return "", err
	}
	machine := engine.VM()
	globals := machine.GlobalNames()
	if main := machine.MainModule(); main != nil {
		for _, e := range main.Exports.Entries() {
			if e.Key.IsString() {
				globals = append(globals, e.Key.AsString())
			}
		}
	}
	chunk, err := vm.Compile(program, vm.CompileOptions{
		File:    replSource,
		Globals: globals,
		REPL:    true,
	})
	if err != nil {
		return "", err
	}
	result, err := engine.RunChunk(chunk)
	if err != nil {
		return "", err
	}
	if result.IsNull() {
		return "", nil
	}
	return engine.Display(result)
}

// readByParseProbe keeps prompting while the accumulated input parses as
// incomplete.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, perr := parser.Parse(src, replSource); perr != nil && parser.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}
