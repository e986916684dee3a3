package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// ErrNoJobControl is returned by Suspend when nothing would resume the process.
var ErrNoJobControl = errors.New("terminal: no job control")

// Suspend restores the terminal, stops the process as if the suspend key
// had been pressed and switches back to raw mode once it is continued.
// Raw mode disables ISIG, so callers handle ^Z themselves and call Suspend.
//
// The kernel discards SIGTSTP sent to an orphaned process group, so Suspend
// refuses with ErrNoJobControl unless the process is in the terminal's
// foreground group and its parent runs a separate group of the same session,
// as a job control shell does. The terminal is left in raw mode in that case.
func (g *Guard) Suspend() error {
	if !jobControl(g.fd()) {
		return ErrNoJobControl
	}
	if err := g.Restore(); err != nil {
		return err
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGCONT)
	defer signal.Stop(ch)

	if err := unix.Kill(unix.Getpid(), unix.SIGTSTP); err != nil {
		return fmt.Errorf("terminal: suspend: %w", err)
	}
	<-ch
	return g.apply()
}

func jobControl(fd int) bool {
	fg, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || fg != unix.Getpgrp() {
		return false
	}
	ppid := unix.Getppid()
	ppgrp, err := unix.Getpgid(ppid)
	if err != nil || ppgrp == unix.Getpgrp() {
		return false
	}
	psid, err := unix.Getsid(ppid)
	if err != nil {
		return false
	}
	sid, err := unix.Getsid(0)
	return err == nil && psid == sid
}
