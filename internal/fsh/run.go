package fsh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
)

// minArgs is the program name plus the file path.
const minArgs = 2

type runFlags struct {
	workDir     string
	configPath  string
	scripts     []string
	stdin       bool
	verbose     bool
	printConfig bool
	help        bool
	overrides   Config
	path        string
}

// Run is the main entry point of fsh. args includes the program name.
// Returns the exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) < minArgs {
		printUsage(out)

		return 0
	}

	flags, err := parseRunFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	if flags.help {
		printUsage(out)

		return 0
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			fprintln(errOut, "error: cannot get working directory:", err)

			return 1
		}
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDir:    workDir,
		ConfigPath: flags.configPath,
		Overrides:  flags.overrides,
		Env:        env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	if flags.printConfig {
		return printConfig(out, errOut, cfg)
	}

	if flags.path == "" {
		fprintln(errOut, "error:", ErrPathRequired)
		printUsage(errOut)

		return 1
	}

	path := flags.path
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	logger := slog.New(slog.DiscardHandler)
	if flags.verbose {
		logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	session, err := OpenSession(cfg, path, logger)
	if err != nil {
		fprintln(errOut, "error:", DescribeError(err))

		return 1
	}

	session.dir = workDir

	code := runSession(in, out, errOut, session, flags)

	if err := session.Close(); err != nil && code == 0 {
		fprintln(errOut, "error:", DescribeError(err))

		return 1
	}

	return code
}

func runSession(in io.Reader, out, errOut io.Writer, s *Session, flags runFlags) int {
	switch {
	case len(flags.scripts) > 0:
		var lines []string

		for _, script := range flags.scripts {
			split, err := SplitScript(script)
			if err != nil {
				fprintln(errOut, "error:", err)

				return 1
			}

			lines = append(lines, split...)
		}

		return execLines(out, errOut, s, lines)
	case flags.stdin:
		var lines []string

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}

		if err := scanner.Err(); err != nil {
			fprintln(errOut, "error: reading commands:", err)

			return 1
		}

		return execLines(out, errOut, s, lines)
	default:
		if err := NewREPL(s, out, errOut, s.cfg.History).Run(); err != nil {
			fprintln(errOut, "error:", err)

			return 1
		}

		return 0
	}
}

// execLines runs lines in order, stopping at quit or the first failure.
func execLines(out, errOut io.Writer, s *Session, lines []string) int {
	for _, line := range lines {
		err := s.Exec(out, line)
		if errors.Is(err, ErrQuit) {
			return 0
		}

		if err != nil {
			fprintln(errOut, "error:", DescribeError(err))

			return 1
		}
	}

	return 0
}

func parseRunFlags(args []string) (runFlags, error) {
	var flags runFlags

	flagSet := flag.NewFlagSet("fsh", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(true)

	flagSet.StringVarP(&flags.workDir, "cwd", "C", "", "Run as if started in `dir`")
	flagSet.StringVarP(&flags.configPath, "config", "c", "", "Use specified config `file`")
	flagSet.StringArrayVarP(&flags.scripts, "exec", "e", nil, "Run `commands` (separated by ';') and exit")
	flagSet.BoolVarP(&flags.stdin, "stdin", "s", false, "Read commands from stdin, one per line")
	flagSet.BoolVarP(&flags.verbose, "verbose", "v", false, "Log file operations to stderr")
	flagSet.BoolVar(&flags.printConfig, "print-config", false, "Print the resolved config and exit")
	flagSet.BoolVarP(&flags.help, "help", "h", false, "Show help")
	flagSet.StringVarP(&flags.overrides.Backend, "backend", "b", "", "Backend: auto, stream, fd, handle, memory")
	flagSet.StringVarP(&flags.overrides.Mode, "mode", "m", "", "Open mode, e.g. read-only, read-write-trunc")
	flagSet.IntVar(&flags.overrides.BufferSize, "buffer-size", 0, "Search buffer size in bytes")
	flagSet.StringVar(&flags.overrides.History, "history", "", "REPL history `file`")
	maxMatches := flagSet.Int64("max-matches", -1, "Limit search results (-1 = unlimited)")

	if err := flagSet.Parse(args); err != nil {
		return runFlags{}, err
	}

	if flagSet.Changed("max-matches") {
		flags.overrides.MaxMatches = maxMatches
	}

	rest := flagSet.Args()
	if len(rest) > 1 {
		return runFlags{}, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, rest[1:])
	}

	if len(rest) == 1 {
		flags.path = rest[0]
	}

	return flags, nil
}

func printConfig(out, errOut io.Writer, cfg Config) int {
	formatted, err := FormatConfig(cfg)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	fprintln(out, formatted)
	fprintln(out, "")
	fprintln(out, "# Sources:")

	if cfg.Sources.Global != "" {
		fprintln(out, "#   global:", cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		fprintln(out, "#   project:", cfg.Sources.Project)
	}

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		fprintln(out, "#   (using defaults only)")
	}

	return 0
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer) {
	fprintln(w, `fsh - inspect and patch files through the fileio backends

Usage: fsh [flags] <file>

Flags:
  -C, --cwd <dir>          Run as if started in <dir>
  -c, --config <file>      Use specified config file
  -e, --exec <commands>    Run commands (separated by ';') and exit; repeatable
  -s, --stdin              Read commands from stdin, one per line
  -b, --backend <name>     Backend: auto, stream, fd, handle, memory
  -m, --mode <mode>        Open mode: read-only, read-write, write-only,
                           read-write-trunc, append, read-append
      --buffer-size <n>    Search buffer size in bytes
      --max-matches <n>    Limit search results (-1 = unlimited)
      --history <file>     REPL history file
      --print-config       Print the resolved config and exit
  -v, --verbose            Log file operations to stderr
  -h, --help               Show help

Without -e or -s, fsh starts an interactive prompt. Type 'help' there for
the command list.`)
}
