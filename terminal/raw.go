package terminal

import (
	"os"

	"github.com/amenzhinsky/rawtty/termios"
	"golang.org/x/sys/unix"
)

// RawAttrs returns a copy of t with canonical input processing disabled.
//
// Carriage-return translation and XON/XOFF flow control are turned off on
// input, as are echo, line buffering, extended processing and signal keys.
// Output processing is left as is so that "\n" is still written as "\r\n".
func RawAttrs(t unix.Termios) unix.Termios {
	t.Iflag &^= unix.ICRNL | unix.IXON
	// t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.IEXTEN | unix.ICANON | unix.ISIG
	return t
}

// setAttrs applies attributes with flush-on-change.
var setAttrs = termios.SetFlush

// Guard holds the attributes a terminal had before it was put into raw mode.
// It keeps a reference to the file so its descriptor stays open.
type Guard struct {
	f    *os.File
	orig unix.Termios
}

// Raw puts the terminal f into raw mode and returns a Guard
// that restores its previous attributes.
func Raw(f *os.File) (*Guard, error) {
	g, err := capture(f)
	if err != nil {
		return nil, err
	}
	if err = g.apply(); err != nil {
		return nil, err
	}
	return g, nil
}

func capture(f *os.File) (*Guard, error) {
	t, err := termios.Get(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	return &Guard{f: f, orig: *t}, nil
}

func (g *Guard) fd() int {
	return int(g.f.Fd())
}

func (g *Guard) apply() error {
	raw := RawAttrs(g.orig)
	return setAttrs(g.fd(), &raw)
}

// Restore reapplies the attributes captured by Raw.
// It may be called more than once.
func (g *Guard) Restore() error {
	orig := g.orig
	return setAttrs(g.fd(), &orig)
}

// Original returns the attributes captured by Raw.
func (g *Guard) Original() unix.Termios {
	return g.orig
}

// WithRawMode runs fn with f in raw mode. The terminal is restored
// when fn returns or panics; a panic is propagated after restoring.
func WithRawMode(f *os.File, fn func(g *Guard) error) (err error) {
	g, err := Raw(f)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			g.Restore()
			panic(r)
		}
		if rerr := g.Restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(g)
}
