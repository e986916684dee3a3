package terminal

import (
	"errors"
	"os"
)

// ErrNotEnabled is returned by DisableRawMode when no attributes were captured.
var ErrNotEnabled = errors.New("terminal: raw mode not enabled")

var (
	stdin   = os.Stdin
	session *Guard
)

// EnableRawMode saves the attributes of the terminal on standard input
// and switches it to raw mode.
//
// If the attributes cannot be read nothing is saved. If they are saved but
// cannot be applied, a later DisableRawMode still restores them.
// EnableRawMode and DisableRawMode are not safe for concurrent use.
func EnableRawMode() error {
	g, err := capture(stdin)
	if err != nil {
		return err
	}
	session = g
	return g.apply()
}

// DisableRawMode restores the attributes saved by the most recent
// successful EnableRawMode. Calling it again reapplies the same attributes.
func DisableRawMode() error {
	if session == nil {
		return ErrNotEnabled
	}
	return session.Restore()
}
