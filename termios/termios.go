// Package termios reads and writes the attribute block of a terminal device.
package termios

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Error is returned when a terminal control call fails,
// e.g. the descriptor is not a terminal or the ioctl is denied.
type Error struct {
	Op  string
	Fd  int
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("termios: %s fd %d: %s", e.Op, e.Fd, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Get returns the current attributes of the terminal referred to by fd.
func Get(fd int) (*unix.Termios, error) {
	t, err := unix.IoctlGetTermios(fd, ioctlGet)
	if err != nil {
		return nil, &Error{Op: "get", Fd: fd, Err: err}
	}
	return t, nil
}

// Set applies t immediately.
func Set(fd int, t *unix.Termios) error {
	if err := unix.IoctlSetTermios(fd, ioctlSet, t); err != nil {
		return &Error{Op: "set", Fd: fd, Err: err}
	}
	return nil
}

// SetFlush applies t after pending output has been written,
// discarding any input that has been received but not read.
func SetFlush(fd int, t *unix.Termios) error {
	if err := unix.IoctlSetTermios(fd, ioctlSetFlush, t); err != nil {
		return &Error{Op: "set", Fd: fd, Err: err}
	}
	return nil
}

func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// Size returns the visible dimensions of the terminal.
func Size(fd int) (width, height int, err error) {
	width, height, err = term.GetSize(fd)
	if err != nil {
		return 0, 0, &Error{Op: "size", Fd: fd, Err: err}
	}
	return width, height, nil
}
