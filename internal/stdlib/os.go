package stdlib

import (
	"bytes"
	"errors"
	"io"
	"os"
	osexec "os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/kite/internal/value"
)

var processLog = commonlog.GetLogger("kite.process")

// OSBuiltins returns the os module.
func OSBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"args":  builtinOSArgs,
		"cwd":   builtinOSCwd,
		"env":   builtinOSEnv,
		"name":  builtinOSName,
		"spawn": builtinOSSpawn,
		"time":  builtinOSTime,
	}
}

func builtinOSArgs(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("args", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.TupleOf(rt.Args()...), nil
}

func builtinOSCwd(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("cwd", args, 0, 0); err != nil {
		return value.Null, err
	}
	dir, err := os.Getwd()
	if err != nil {
		return value.Null, value.Errorf("cwd: %s", err)
	}
	return value.Str(dir), nil
}

// builtinOSEnv returns an environment variable, or null when it is unset.
func builtinOSEnv(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("env", args, 1, 1); err != nil {
		return value.Null, err
	}
	if !args[0].IsString() {
		return value.Null, value.UnexpectedArgs("env", "a String", args)
	}
	v, ok := os.LookupEnv(args[0].AsString())
	if !ok {
		return value.Null, nil
	}
	return value.Str(v), nil
}

func builtinOSName(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("name", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.Str(runtime.GOOS), nil
}

// builtinOSTime returns the seconds since the Unix epoch as a float.
func builtinOSTime(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("time", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.Float(float64(time.Now().UnixNano()) / 1e9), nil
}

// builtinOSSpawn starts a program and returns its handle. Arguments are
// displayed to strings.
func builtinOSSpawn(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("spawn", args, 1, -1); err != nil {
		return value.Null, err
	}
	if !args[0].IsString() {
		return value.Null, value.UnexpectedArgs("spawn", "a program name followed by arguments", args)
	}
	argv := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		s, err := rt.Display(a)
		if err != nil {
			return value.Null, err
		}
		argv = append(argv, s)
	}
	p, err := startProcess(args[0].AsString(), argv)
	if err != nil {
		return value.Null, value.Errorf("spawn: %s", err)
	}
	return value.FromMap(p.handle()), nil
}

// process is a running external program. Its output is drained by
// background goroutines; done is closed once the program has exited and
// both streams are read.
type process struct {
	id     string
	cmd    *osexec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	done   chan struct{}

	exitCode int
	err      error
}

func startProcess(program string, argv []string) (*process, error) {
	p := &process{
		id:   uuid.New().String(),
		cmd:  osexec.Command(program, argv...),
		done: make(chan struct{}),
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	processLog.Debugf("spawned %s as %s (pid %d)", program, p.id, p.cmd.Process.Pid)

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&p.stdout, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&p.stderr, stderr)
		return err
	})
	go func() {
		drainErr := g.Wait()
		waitErr := p.cmd.Wait()
		var exitErr *osexec.ExitError
		if errors.As(waitErr, &exitErr) {
			waitErr = nil
		}
		p.exitCode = p.cmd.ProcessState.ExitCode()
		p.err = errors.Join(drainErr, waitErr)
		processLog.Debugf("process %s exited with code %d", p.id, p.exitCode)
		close(p.done)
	}()
	return p, nil
}

// result is only valid after done is closed.
func (p *process) result() (value.Value, error) {
	if p.err != nil {
		return value.Null, value.Errorf("process %s: %s", p.id, p.err)
	}
	m := value.NewMapCap(3)
	m.SetStr("exit_code", value.Int(int64(p.exitCode)))
	m.SetStr("stdout", value.Str(p.stdout.String()))
	m.SetStr("stderr", value.Str(p.stderr.String()))
	return value.FromMap(m), nil
}

func (p *process) handle() *value.Map {
	m := value.NewMap()
	m.SetStr("id", value.Str(p.id))
	m.SetStr("pid", value.NewNative("pid", func(rt value.Runtime, args []value.Value) (value.Value, error) {
		if err := value.CheckArgs("pid", args, 0, 0); err != nil {
			return value.Null, err
		}
		return value.Int(int64(p.cmd.Process.Pid)), nil
	}))
	m.SetStr("poll", value.NewNative("poll", func(rt value.Runtime, args []value.Value) (value.Value, error) {
		if err := value.CheckArgs("poll", args, 0, 0); err != nil {
			return value.Null, err
		}
		select {
		case <-p.done:
			return p.result()
		default:
			return value.Null, nil
		}
	}))
	m.SetStr("wait", value.NewNative("wait", func(rt value.Runtime, args []value.Value) (value.Value, error) {
		if err := value.CheckArgs("wait", args, 0, 0); err != nil {
			return value.Null, err
		}
		<-p.done
		return p.result()
	}))
	m.SetStr("kill", value.NewNative("kill", func(rt value.Runtime, args []value.Value) (value.Value, error) {
		if err := value.CheckArgs("kill", args, 0, 0); err != nil {
			return value.Null, err
		}
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return value.Null, value.Errorf("kill: %s", err)
		}
		processLog.Debugf("killed process %s", p.id)
		return value.Null, nil
	}))
	m.EnsureMeta().Set(value.MetaType, value.Str("Process"))
	return m
}
