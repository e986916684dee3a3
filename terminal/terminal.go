// Package terminal switches a terminal between canonical and raw input.
//
// The simplest use is the process-wide pair operating on standard input:
//
//	if err := terminal.EnableRawMode(); err != nil {
//		return err
//	}
//	defer terminal.DisableRawMode()
//
// Callers holding a specific terminal file should prefer Raw or WithRawMode,
// which tie the saved attributes to a Guard instead of a global slot.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/amenzhinsky/rawtty/termios"
	"golang.org/x/sys/unix"
)

// ErrNotTerminal is returned when a file is not connected to a terminal.
var ErrNotTerminal = errors.New("terminal: not a terminal")

// Isatty reports whether f refers to a terminal.
func Isatty(f *os.File) bool {
	return termios.IsTerminal(int(f.Fd()))
}

// Prompt writes s to w and reads a single line from f with echo disabled.
// The terminal attributes are restored before returning.
func Prompt(f *os.File, w io.Writer, s string) (line []byte, err error) {
	fd := int(f.Fd())
	orig, err := termios.Get(fd)
	if err != nil {
		return nil, err
	}
	noecho := *orig
	noecho.Lflag &^= unix.ECHO
	if err = termios.Set(fd, &noecho); err != nil {
		return nil, err
	}
	defer func() {
		if rerr := termios.Set(fd, orig); rerr != nil && err == nil {
			err = rerr
		}
	}()

	fmt.Fprint(w, s)
	line, _, err = bufio.NewReader(f).ReadLine()
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w)
	return line, nil
}

// Reset forces the canonical input flags back on.
// It is meant for recovery when the original attributes were lost,
// such as after a crash in a previous process.
func Reset(f *os.File) error {
	fd := int(f.Fd())
	t, err := termios.Get(fd)
	if err != nil {
		return err
	}
	t.Lflag |= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Iflag |= unix.ICRNL | unix.IXON
	return termios.SetFlush(fd, t)
}
