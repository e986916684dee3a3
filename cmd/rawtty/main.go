package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/amenzhinsky/rawtty/hash"
	"github.com/amenzhinsky/rawtty/terminal"
	"github.com/amenzhinsky/rawtty/termios"
	"github.com/ross96D/cancelreader"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

var (
	verboseFlag bool
	deviceFlag  string
)

var (
	errUsage      = errors.New("invalid usage")
	errUnknownCmd = errors.New("unknown command")
)

var log = logrus.New()

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: %s [common-option...] COMMAND [arg...]

Commands:
  keys   show the bytes produced by each key press
  echo   echo input in raw mode until ^D
  attrs  print terminal attributes
  hash   derive a key from a passphrase read without echo
  reset  force the terminal back to canonical mode

Common options:
`, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.CommandLine.SetInterspersed(false)
	flag.BoolVarP(&verboseFlag, "verbose", "v", envBool("RAWTTY_VERBOSE"), "enable verbose output")
	flag.StringVar(&deviceFlag, "device", os.Getenv("RAWTTY_DEVICE"), "terminal device `path`, standard input by default")
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verboseFlag {
		log.SetLevel(logrus.DebugLevel)
	}

	fs := flag.NewFlagSet(flag.Arg(0), flag.ExitOnError)
	if err := run(fs, flag.Args()[1:]); err != nil {
		if err == errUnknownCmd {
			flag.Usage()
			os.Exit(2)
		}
		if err == errUsage {
			fs.Usage()
			os.Exit(2)
		}
		log.Error(err)
		os.Exit(1)
	}
}

func run(fs *flag.FlagSet, argv []string) error {
	switch fs.Name() {
	case "keys":
		return cmdKeys(fs, argv)
	case "echo":
		return cmdEcho(fs, argv)
	case "attrs":
		return cmdAttrs(fs, argv)
	case "hash":
		return cmdHash(fs, argv)
	case "reset":
		return cmdReset(fs, argv)
	default:
		return errUnknownCmd
	}
}

func cmdKeys(fs *flag.FlagSet, argv []string) error {
	fs.Usage = mkUsage(fs, "")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	f, err := openTerminal()
	if err != nil {
		return err
	}
	defer closeDevice(f)

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGHUP)
	defer stop()

	fmt.Fprintln(os.Stderr, "Press keys to see their codes, q or ^C to quit, ^Z to suspend.")
	return terminal.WithRawMode(f, func(g *terminal.Guard) error {
		log.Debugf("%s is in raw mode", f.Name())
		r, err := cancelreader.NewReader(f)
		if err != nil {
			return err
		}
		defer r.Close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				log.Debug("interrupted, restoring terminal")
				r.Cancel()
			case <-done:
			}
		}()
		return readKeys(r, os.Stdout, func() error {
			if err := g.Suspend(); err != terminal.ErrNoJobControl {
				return err
			}
			log.Warn("cannot suspend without job control")
			return nil
		})
	})
}

const (
	ctrlC = 0x03
	ctrlD = 0x04
	ctrlZ = 0x1a
)

// readKeys prints a line per byte read from r until q or ^C.
func readKeys(r io.Reader, w io.Writer, suspend func() error) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			switch b {
			case 'q', ctrlC:
				return nil
			case ctrlZ:
				if err := suspend(); err != nil {
					return err
				}
				continue
			}
			// OPOST is kept in raw mode, \n is written as \r\n
			fmt.Fprintln(w, describe(b))
		}
		if err != nil {
			if err == io.EOF || errors.Is(err, cancelreader.ErrCanceled) {
				return nil
			}
			return err
		}
	}
}

func describe(b byte) string {
	return fmt.Sprintf("0x%02x %3d  %s", b, b, keyName(b))
}

func keyName(b byte) string {
	switch {
	case b == 0x1b:
		return "ESC"
	case b == ' ':
		return "SPACE"
	case b == 0x7f:
		return "^?"
	case b < 0x20:
		return "^" + string(rune(b+'@'))
	case b < 0x7f:
		return string(rune(b))
	default:
		return ""
	}
}

func cmdEcho(fs *flag.FlagSet, argv []string) error {
	fs.Usage = mkUsage(fs, "")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}
	if deviceFlag != "" {
		return errors.New("echo operates on standard input only")
	}

	if err := terminal.EnableRawMode(); err != nil {
		return err
	}
	defer func() {
		if err := terminal.DisableRawMode(); err != nil {
			log.Warnf("cannot restore terminal: %s", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, unix.SIGTERM, unix.SIGHUP)
	defer signal.Stop(sigc)
	done := make(chan struct{})
	defer close(done)
	go restoreOnSignal(sigc, done, terminal.DisableRawMode, os.Exit)

	log.Debug("standard input is in raw mode, ^D to quit")
	return echo(os.Stdin, os.Stdout)
}

// restoreOnSignal restores the terminal and exits when a signal arrives
// on sigc, it returns once done is closed.
func restoreOnSignal(sigc <-chan os.Signal, done <-chan struct{}, restore func() error, exit func(int)) {
	select {
	case sig := <-sigc:
		if err := restore(); err != nil {
			log.Warnf("cannot restore terminal: %s", err)
		}
		log.Debugf("exiting on %s", sig)
		exit(1)
	case <-done:
	}
}

// echo copies r to w until ^C or ^D, writing a newline for each CR.
func echo(r io.Reader, w io.Writer) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		chunk := buf[:n]
		stop := bytes.IndexAny(chunk, string([]byte{ctrlC, ctrlD}))
		if stop >= 0 {
			chunk = chunk[:stop]
		}
		if _, werr := w.Write(bytes.ReplaceAll(chunk, []byte{'\r'}, []byte{'\n'})); werr != nil {
			return werr
		}
		if stop >= 0 || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func cmdAttrs(fs *flag.FlagSet, argv []string) error {
	fs.Usage = mkUsage(fs, "")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	f, err := openTerminal()
	if err != nil {
		return err
	}
	defer closeDevice(f)

	t, err := termios.Get(int(f.Fd()))
	if err != nil {
		return err
	}
	writeAttrs(os.Stdout, t)
	if w, h, err := termios.Size(int(f.Fd())); err == nil {
		fmt.Printf("size   %dx%d\n", w, h)
	} else {
		log.Debug(err)
	}
	return nil
}

type flagName struct {
	name string
	bit  uint64
}

var (
	iflagNames = []flagName{{"ICRNL", unix.ICRNL}, {"IXON", unix.IXON}}
	oflagNames = []flagName{{"OPOST", unix.OPOST}}
	lflagNames = []flagName{
		{"ECHO", unix.ECHO},
		{"ICANON", unix.ICANON},
		{"ISIG", unix.ISIG},
		{"IEXTEN", unix.IEXTEN},
	}
)

func writeAttrs(w io.Writer, t *unix.Termios) {
	writeFlags(w, "iflag", uint64(t.Iflag), iflagNames)
	writeFlags(w, "oflag", uint64(t.Oflag), oflagNames)
	writeFlags(w, "cflag", uint64(t.Cflag), nil)
	writeFlags(w, "lflag", uint64(t.Lflag), lflagNames)
	fmt.Fprintf(w, "raw    %t\n", terminal.RawAttrs(*t) == *t)
}

func writeFlags(w io.Writer, label string, v uint64, names []flagName) {
	fmt.Fprintf(w, "%-6s 0x%08x", label, v)
	for _, n := range names {
		if v&n.bit != 0 {
			fmt.Fprint(w, " ", n.name)
		} else {
			fmt.Fprint(w, " -", n.name)
		}
	}
	fmt.Fprintln(w)
}

func cmdHash(fs *flag.FlagSet, argv []string) error {
	var (
		sha512Flag bool
		iterFlag   int
		lenFlag    int
		saltFlag   string
	)
	fs.Usage = mkUsage(fs, "")
	fs.BoolVar(&sha512Flag, "sha512", false, "use PBKDF2-HMAC-SHA512")
	fs.IntVar(&iterFlag, "iter", 75000, "`number` of iterations")
	fs.IntVar(&lenFlag, "len", 32, "key length in `bytes`")
	fs.StringVar(&saltFlag, "salt", "", "`salt` to derive the key with")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() != 0 || saltFlag == "" {
		return errUsage
	}

	f, err := openDevice()
	if err != nil {
		return err
	}
	passwd, err := getPassword(f)
	closeDevice(f)
	if err != nil {
		return err
	}

	b, err := hash.Hash(passwd,
		hash.WithSalt([]byte(saltFlag)),
		hash.WithSHA512(sha512Flag),
		hash.WithIterations(iterFlag),
		hash.WithKeyLength(lenFlag),
	)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(b))
	return nil
}

func getPassword(f *os.File) ([]byte, error) {
	if !terminal.Isatty(f) {
		// not a tty, read until EOF
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		return bytes.TrimRight(b, "\r\n"), nil
	}
	return terminal.Prompt(f, os.Stderr, "Enter passphrase: ")
}

func cmdReset(fs *flag.FlagSet, argv []string) error {
	fs.Usage = mkUsage(fs, "")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	f, err := openTerminal()
	if err != nil {
		return err
	}
	defer closeDevice(f)
	return terminal.Reset(f)
}

// openDevice opens the file named by --device or returns standard input.
func openDevice() (*os.File, error) {
	if deviceFlag == "" {
		return os.Stdin, nil
	}
	return os.OpenFile(deviceFlag, os.O_RDWR, 0)
}

func openTerminal() (*os.File, error) {
	f, err := openDevice()
	if err != nil {
		return nil, err
	}
	log.Debugf("using %s", f.Name())
	if !terminal.Isatty(f) {
		closeDevice(f)
		return nil, fmt.Errorf("%s: %w", f.Name(), terminal.ErrNotTerminal)
	}
	return f, nil
}

func closeDevice(f *os.File) {
	if f != nil && f != os.Stdin {
		f.Close()
	}
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func mkUsage(fs *flag.FlagSet, usage string) func() {
	return func() {
		var hasFlags bool
		fs.VisitAll(func(f *flag.Flag) {
			hasFlags = true
		})

		fmt.Fprintf(os.Stderr, `Usage: %s [common-option...] %s [option...] %s`,
			filepath.Base(os.Args[0]), fs.Name(), usage)
		fmt.Fprint(os.Stderr, "\n")
		if hasFlags {
			fmt.Fprint(os.Stderr, "\nOptions:\n")
			fs.PrintDefaults()
		}
		fmt.Fprint(os.Stderr, "\nCommon options:\n")
		flag.PrintDefaults()
	}
}
