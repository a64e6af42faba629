package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/funvibe/kite/internal/cache"
	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/modules"
	"github.com/funvibe/kite/internal/vm"
	kite "github.com/funvibe/kite/pkg/embed"
)

var log = commonlog.GetLogger("kite.cli")

const usage = `Usage:
  kite [flags] <script.kite> [args...]   run a script, then its @main
  kite [flags] --tests <script.kite>     run a script's @test entries
  kite [flags] -e '<source>'             evaluate source and print the result
  kite [flags]                           start the REPL

Flags:
  --no-cache   don't read or write the bytecode cache
  -v, -vv      log info, or debug, messages to stderr
  -h, --help   show this message
`

// options are the parsed command line. Flags are only recognized before
// the script path; everything after it belongs to the script.
type options struct {
	tests     bool
	eval      string
	hasEval   bool
	noCache   bool
	verbosity int
	script    string
	args      []string
}

func parseArgs(argv []string) (*options, error) {
	opts := &options{verbosity: -1}
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if opts.script != "" {
			opts.args = append(opts.args, arg)
			continue
		}
		switch arg {
		case "--tests", "-tests":
			opts.tests = true
		case "-e", "--eval":
			if i+1 >= len(argv) {
				return nil, fmt.Errorf("%s expects source code", arg)
			}
			i++
			opts.eval, opts.hasEval = argv[i], true
		case "--no-cache":
			opts.noCache = true
		case "-v":
			opts.verbosity = 1
		case "-vv":
			opts.verbosity = 2
		case "-h", "--help", "help":
			return nil, errHelp
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag %s", arg)
			}
			opts.script = arg
		}
	}
	if opts.tests && opts.script == "" {
		return nil, errors.New("--tests expects a script")
	}
	if opts.hasEval && opts.script != "" {
		return nil, errors.New("-e can't be combined with a script")
	}
	return opts, nil
}

var errHelp = errors.New("help requested")

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("KITE_DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts, err := parseArgs(argv)
	if errors.Is(err, errHelp) {
		fmt.Print(usage)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n%s", err, usage)
		return 2
	}

	projectDir := "."
	if opts.script != "" {
		projectDir = filepath.Dir(opts.script)
	}
	project, err := config.FindAndLoadProject(projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	configureLogging(opts, project)

	out := newPainter(os.Stdout, project)
	errOut := newPainter(os.Stderr, project)

	engine := kite.New()
	engine.SetArgs(opts.args)
	searchPaths := append(append([]string(nil), project.ModulePaths...), modules.SearchPathsFromEnv()...)
	engine.SetResolver(modules.NewFileResolver(searchPaths...))

	if project.Cache.Enabled && !opts.noCache {
		if c := openCache(project); c != nil {
			defer c.Close()
			engine.SetCache(c)
		}
	}

	switch {
	case opts.hasEval:
		return evalSource(engine, opts.eval, out, errOut)
	case opts.script == "":
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			source, err := io.ReadAll(os.Stdin)
			if err != nil {
				errOut.error(fmt.Sprintf("Error reading input: %s", err))
				return 1
			}
			return evalSource(engine, string(source), out, errOut)
		}
		return runREPL(engine, out, errOut)
	case opts.tests:
		return runTests(engine, opts.script, out, errOut)
	}
	return runScript(engine, opts.script, opts.args, errOut)
}

// configureLogging applies -v flags, falling back to kite.yaml.
func configureLogging(opts *options, project *config.Project) {
	verbosity := project.Log.Verbosity
	if opts.verbosity >= 0 {
		verbosity = opts.verbosity
	}
	var path *string
	if project.Log.File != "" {
		path = &project.Log.File
	}
	commonlog.Configure(verbosity, path)
}

func openCache(project *config.Project) *cache.Cache {
	path := project.Cache.Path
	if path == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			log.Warningf("no cache directory: %s", err)
			return nil
		}
		path = p
	}
	c, err := cache.Open(path)
	if err != nil {
		log.Warningf("bytecode cache disabled: %s", err)
		return nil
	}
	return c
}

func evalSource(engine *kite.Engine, source string, out, errOut *painter) int {
	result, err := engine.Run(source)
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	s, err := engine.Display(result)
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	out.result(s)
	return 0
}

func runScript(engine *kite.Engine, path string, args []string, errOut *painter) int {
	if _, err := engine.RunFile(path); err != nil {
		reportError(errOut, err)
		return 1
	}
	if _, _, err := engine.Main(args); err != nil {
		reportError(errOut, err)
		return 1
	}
	return 0
}

func runTests(engine *kite.Engine, path string, out, errOut *painter) int {
	if _, err := engine.RunFile(path); err != nil {
		reportError(errOut, err)
		return 1
	}
	failed := 0
	results := engine.RunTests(func(r kite.TestResult) {
		if r.Passed() {
			out.pass(fmt.Sprintf("PASS %s (%s)", r.Name, r.Duration.Round(time.Microsecond)))
			return
		}
		failed++
		errOut.error(fmt.Sprintf("FAIL %s: %s", r.Name, errorText(r.Err)))
	})
	fmt.Fprintf(out.w, "\n%d passed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func errorText(err error) string {
	var rtErr *vm.RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr.FormatTrace()
	}
	return err.Error()
}

func reportError(errOut *painter, err error) {
	errOut.error(errorText(err))
}

// painter writes to a stream, coloring output when it is a terminal.
type painter struct {
	w     io.Writer
	color bool
}

func newPainter(f *os.File, project *config.Project) *painter {
	color := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	if project.Color != nil {
		color = *project.Color
	}
	return &painter{w: f, color: color}
}

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func (p *painter) paint(code, s string) {
	if p.color {
		fmt.Fprintf(p.w, "%s%s%s\n", code, s, ansiReset)
		return
	}
	fmt.Fprintln(p.w, s)
}

func (p *painter) error(s string)  { p.paint(ansiRed, s) }
func (p *painter) pass(s string)   { p.paint(ansiGreen, s) }
func (p *painter) result(s string) { p.paint(ansiCyan, s) }
