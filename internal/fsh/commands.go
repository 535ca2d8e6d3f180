package fsh

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

// ErrQuit is returned by [Session.Exec] for the quit command.
var ErrQuit = errors.New("quit")

// maxReadSize bounds a single read command.
const maxReadSize = 16 << 20

type command struct {
	usage   string
	short   string
	minArgs int
	maxArgs int
	run     func(s *Session, out io.Writer, args []string) error
}

// commandTable lists the file commands in help order. help and quit are
// handled by Exec.
var commandTable = []struct {
	name string
	cmd  command
}{
	{"read", command{"read <n>", "Hexdump n bytes at the current position", 1, 1, cmdRead}},
	{"write", command{`write <hex|"text">`, "Write bytes at the current position", 1, 1, cmdWrite}},
	{"seek", command{"seek <off> [set|cur|end]", "Move the position", 1, 2, cmdSeek}},
	{"truncate", command{"truncate <size>", "Set the file size (position unchanged)", 1, 1, cmdTruncate}},
	{"search", command{`search <hex|"text"> [max]`, "List offsets of a pattern", 1, 2, cmdSearch}},
	{"move", command{"move <src> <dest> <n>", "Copy n bytes within the file", 3, 3, cmdMove}},
	{"discard", command{"discard <n>", "Read and drop n bytes", 1, 1, cmdDiscard}},
	{"pos", command{"pos", "Show the current position", 0, 0, cmdPos}},
	{"size", command{"size", "Show the file size", 0, 0, cmdSize}},
	{"state", command{"state", "Show handle state and last error", 0, 0, cmdState}},
	{"save", command{"save <path>", "Atomically write the whole file to path", 1, 1, cmdSave}},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commandTable {
		if c.name == name {
			return c.cmd, true
		}
	}

	return command{}, false
}

// CommandNames returns every command name, for completion.
func CommandNames() []string {
	names := make([]string, 0, len(commandTable)+3)
	for _, c := range commandTable {
		names = append(names, c.name)
	}

	return append(names, "help", "quit", "exit")
}

// Exec runs one command line against the session, writing results to out.
// Returns [ErrQuit] for quit/exit. An empty line does nothing.
func (s *Session) Exec(out io.Writer, line string) error {
	fields, err := splitFields(line)
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	s.logger.Debug("command", slog.String("name", name), slog.Any("args", args))

	switch name {
	case "quit", "exit", "q":
		return ErrQuit
	case "help", "?":
		printCommandHelp(out)

		return nil
	}

	cmd, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("%w: %s (type 'help' for commands)", ErrUnknownCommand, name)
	}

	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}

	return cmd.run(s, out, args)
}

func printCommandHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")

	for _, c := range commandTable {
		fmt.Fprintf(out, "  %-28s %s\n", c.cmd.usage, c.cmd.short)
	}

	fmt.Fprintf(out, "  %-28s %s\n", "help", "Show this help")
	fmt.Fprintf(out, "  %-28s %s\n", "quit", "Exit")
	fmt.Fprintln(out)
	fmt.Fprintln(out, `Numbers accept 0x prefixes. Data is hex (e.g. 'deadbeef') or a quoted string (e.g. "foo\n").`)
}

// DescribeError formats err for display. File errors are shown with their
// status, e.g. "FAILED: Failed to read file: input/output error".
func DescribeError(err error) string {
	var fe *fileio.Error
	if errors.As(err, &fe) {
		return fe.Status.String() + ": " + err.Error()
	}

	return err.Error()
}

func cmdRead(s *Session, out io.Writer, args []string) error {
	n, err := parseUint(args[0])
	if err != nil {
		return err
	}

	if n > maxReadSize {
		return fmt.Errorf("%w: read size is limited to %d bytes", ErrUsage, maxReadSize)
	}

	buf := make([]byte, n)

	got, err := fileio.ReadFully(s.file, buf)
	if got > 0 {
		fmt.Fprint(out, hex.Dump(buf[:got]))
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(out, "read %d bytes\n", got)

	return nil
}

func cmdWrite(s *Session, out io.Writer, args []string) error {
	data, err := parseData(args[0])
	if err != nil {
		return err
	}

	n, err := fileio.WriteFully(s.file, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "wrote %d bytes\n", n)

	return nil
}

func cmdSeek(s *Session, out io.Writer, args []string) error {
	off, err := strconv.ParseInt(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", args[0], err)
	}

	whence := fileio.SeekSet

	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "set":
		case "cur":
			whence = fileio.SeekCur
		case "end":
			whence = fileio.SeekEnd
		default:
			return fmt.Errorf("%w: seek <off> [set|cur|end]", ErrUsage)
		}
	}

	pos, err := s.file.Seek(off, whence)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "position %d\n", pos)

	return nil
}

func cmdTruncate(s *Session, out io.Writer, args []string) error {
	size, err := parseUint(args[0])
	if err != nil {
		return err
	}

	if err := s.file.Truncate(size); err != nil {
		return err
	}

	fmt.Fprintf(out, "truncated to %d bytes\n", size)

	return nil
}

func cmdSearch(s *Session, out io.Writer, args []string) error {
	pattern, err := parseData(args[0])
	if err != nil {
		return err
	}

	opts := fileio.DefaultSearchOptions()
	opts.BufferSize = s.cfg.BufferSize
	opts.MaxMatches = s.cfg.SearchMax()

	if len(args) == 2 {
		limit, err := strconv.ParseInt(args[1], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid match limit %q: %w", args[1], err)
		}

		opts.MaxMatches = limit
	}

	matches := 0

	err = fileio.Search(s.file, opts, pattern, func(_ *fileio.File, offset uint64) error {
		matches++
		fmt.Fprintf(out, "match at %d (0x%x)\n", offset, offset)

		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d matches\n", matches)

	return nil
}

func cmdMove(s *Session, out io.Writer, args []string) error {
	var nums [3]uint64

	for i, arg := range args {
		v, err := parseUint(arg)
		if err != nil {
			return err
		}

		nums[i] = v
	}

	moved, err := fileio.Move(s.file, nums[0], nums[1], nums[2])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "moved %d bytes\n", moved)

	return nil
}

func cmdDiscard(s *Session, out io.Writer, args []string) error {
	n, err := parseUint(args[0])
	if err != nil {
		return err
	}

	got, err := fileio.ReadDiscard(s.file, n)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "discarded %d bytes\n", got)

	return nil
}

func cmdPos(s *Session, out io.Writer, _ []string) error {
	pos, err := s.file.Seek(0, fileio.SeekCur)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, pos)

	return nil
}

func cmdSize(s *Session, out io.Writer, _ []string) error {
	size, err := s.size()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, size)

	return nil
}

// size returns the file size, leaving the position where it was.
func (s *Session) size() (uint64, error) {
	pos, err := s.file.Seek(0, fileio.SeekCur)
	if err != nil {
		return 0, err
	}

	size, err := s.file.Seek(0, fileio.SeekEnd)
	if err != nil {
		return 0, err
	}

	if _, err := s.file.Seek(int64(pos), fileio.SeekSet); err != nil {
		return 0, err
	}

	return size, nil
}

func cmdState(s *Session, out io.Writer, _ []string) error {
	fmt.Fprintf(out, "state %s, backend %s, mode %s\n", s.file.State(), s.backend, s.cfg.Mode)

	if s.file.ErrorKind() != fileio.KindNone {
		fmt.Fprintf(out, "last error: %s (kind %s, code %d)\n",
			s.file.ErrorString(), s.file.ErrorKind(), s.file.ErrorCode())
	}

	return nil
}

// cmdSave writes the whole file to path through a temp file and rename. The
// memory backend writes its buffer directly; other backends are read from
// offset 0 and the position is restored afterwards.
func cmdSave(s *Session, out io.Writer, args []string) error {
	path := args[0]
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}

	if s.mem != nil {
		if err := atomic.WriteFile(path, bytes.NewReader(*s.mem)); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}

		fmt.Fprintf(out, "saved %d bytes to %s\n", len(*s.mem), path)

		return nil
	}

	pos, err := s.file.Seek(0, fileio.SeekCur)
	if err != nil {
		return err
	}

	if _, err := s.file.Seek(0, fileio.SeekSet); err != nil {
		return err
	}

	counter := &countingReader{r: fileio.ReadWriteSeeker(s.file)}
	saveErr := atomic.WriteFile(path, counter)

	if _, err := s.file.Seek(int64(pos), fileio.SeekSet); err != nil {
		return err
	}

	if saveErr != nil {
		return fmt.Errorf("saving %s: %w", path, saveErr)
	}

	fmt.Fprintf(out, "saved %d bytes to %s\n", counter.n, path)

	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}

	return v, nil
}

// parseData decodes a quoted Go string literal or a hex string.
func parseData(s string) ([]byte, error) {
	if strings.HasPrefix(s, `"`) {
		text, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadData, s)
		}

		return []byte(text), nil
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadData, s)
	}

	return data, nil
}

// splitFields splits a command line on whitespace. A field starting with a
// double quote runs to the matching unescaped quote and keeps its quotes.
func splitFields(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		inWord bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case c == '"' && !inWord:
			end, err := quoteEnd(line, i)
			if err != nil {
				return nil, err
			}

			fields = append(fields, line[i:end+1])
			i = end
		case c == ' ' || c == '\t':
			if inWord {
				fields = append(fields, cur.String())
				cur.Reset()

				inWord = false
			}
		default:
			cur.WriteByte(c)

			inWord = true
		}
	}

	if inWord {
		fields = append(fields, cur.String())
	}

	return fields, nil
}

// SplitScript splits a -e script into command lines on semicolons outside
// quotes.
func SplitScript(script string) ([]string, error) {
	var lines []string

	start := 0

	for i := 0; i < len(script); i++ {
		switch script[i] {
		case '"':
			end, err := quoteEnd(script, i)
			if err != nil {
				return nil, err
			}

			i = end
		case ';', '\n':
			lines = append(lines, strings.TrimSpace(script[start:i]))
			start = i + 1
		}
	}

	lines = append(lines, strings.TrimSpace(script[start:]))

	return lines, nil
}

// quoteEnd returns the index of the quote closing the one at start.
func quoteEnd(s string, start int) (int, error) {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUnterminatedQuote, s[start:])
}
