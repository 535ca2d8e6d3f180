package fsh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// REPL reads commands from the terminal and runs them against a session.
type REPL struct {
	session *Session
	out     io.Writer
	errOut  io.Writer
	history string
	liner   *liner.State
}

// NewREPL returns a REPL over s. history is the history file path; empty
// uses ~/.fsh_history.
func NewREPL(s *Session, out, errOut io.Writer, history string) *REPL {
	if history == "" {
		history = defaultHistoryFile()
	}

	return &REPL{session: s, out: out, errOut: errOut, history: history}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".fsh_history")
}

// Run starts the REPL loop. It returns nil on quit, Ctrl-C or EOF.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(completeCommand)

	if r.history != "" {
		if f, err := os.Open(r.history); err == nil {
			_, _ = r.liner.ReadHistory(f)
			_ = f.Close()
		}
	}

	defer r.saveHistory()

	fmt.Fprintf(r.out, "fsh - %s (%s backend, %s)\n", r.session.path, r.session.Backend(), r.session.cfg.Mode)
	fmt.Fprintln(r.out, "Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("fsh> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nBye!")

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		err = r.session.Exec(r.out, line)

		switch {
		case errors.Is(err, ErrQuit):
			fmt.Fprintln(r.out, "Bye!")

			return nil
		case err != nil:
			fprintln(r.errOut, "error:", DescribeError(err))
		}
	}
}

func (r *REPL) saveHistory() {
	if r.history == "" {
		return
	}

	if f, err := os.Create(r.history); err == nil {
		_, _ = r.liner.WriteHistory(f)
		_ = f.Close()
	}
}

// completeCommand completes the command name at the start of line.
func completeCommand(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, name := range CommandNames() {
		if strings.HasPrefix(name, lower) {
			completions = append(completions, name)
		}
	}

	return completions
}
