// repl.go - minimal interactive front end over the inferior package
//
// Scope is deliberately narrow: lifecycle control and register
// inspection, the substrate this module defines. No breakpoints,
// disassembly, symbol tables, stepping or watchpoints.

package repl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/rs/zerolog"

	"github.com/intuitionamiga/pdb/internal/inferior"
	"github.com/intuitionamiga/pdb/internal/pdberr"
)

// REPL drives one traced process from line-oriented commands.
type REPL struct {
	proc *inferior.Process
	in   io.Reader
	out  io.Writer
	log  zerolog.Logger
}

// New builds a REPL over an already-launched or -attached process.
func New(proc *inferior.Process, in io.Reader, out io.Writer, log zerolog.Logger) *REPL {
	return &REPL{proc: proc, in: in, out: out, log: log}
}

// Run reads commands until the input is exhausted, the process exits,
// or a "quit" command is seen. It never returns the process's own
// lifecycle outcome as an error: a traced program running to
// completion is success, not failure.
func (r *REPL) Run() error {
	if f, ok := r.in.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(r.out, "pdb ready (stopped). type help for commands.")
	}

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "pdb> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		cmd := ParseCommand(scanner.Text())
		if cmd.Name == "" {
			continue
		}

		quit, err := r.dispatch(cmd)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		if r.proc.State() == inferior.StateExited || r.proc.State() == inferior.StateTerminated {
			fmt.Fprintf(r.out, "inferior %s, pid %d\n", r.proc.State(), r.proc.Pid())
			return nil
		}
	}
}

func (r *REPL) dispatch(cmd Command) (quit bool, err error) {
	switch {
	case matches(cmd.Name, "quit"):
		return true, nil
	case matches(cmd.Name, "help"):
		r.printHelp()
		return false, nil
	case matches(cmd.Name, "continue"):
		return false, r.cmdContinue()
	case matches(cmd.Name, "register"):
		return false, r.cmdRegister(cmd.Args)
	case matches(cmd.Name, "watch"):
		return false, r.cmdWatch(cmd.Args)
	default:
		return false, pdberr.New(pdberr.InvalidArgument, "unknown command: "+cmd.Name)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `commands:
  continue (c)                    resume the inferior and wait for its next stop
  register read <name> (r r)      print one register's value
  register write <name> <value>   write a register (decimal or 0x-hex)
  watch <seconds> (w)             print the pid's /proc state every 200ms for <seconds> (default 3)
  help (h)                        show this text
  quit (q)                        leave the debugger (kills a launched inferior, detaches from an attached one)
`)
}

func (r *REPL) cmdContinue() error {
	if err := r.proc.Resume(); err != nil {
		return err
	}
	reason, err := r.proc.WaitOnSignal()
	if err != nil {
		return err
	}
	r.printStopReason(reason)
	return nil
}

func (r *REPL) printStopReason(reason inferior.StopReason) {
	switch reason.State {
	case inferior.StateExited:
		fmt.Fprintf(r.out, "exited, status %d\n", reason.ExitStatus)
	case inferior.StateTerminated:
		fmt.Fprintf(r.out, "terminated by signal %s\n", reason.Signal)
	case inferior.StateStopped:
		fmt.Fprintf(r.out, "stopped by signal %s\n", reason.Signal)
	default:
		fmt.Fprintln(r.out, "running")
	}
}

func (r *REPL) cmdRegister(args []string) error {
	if len(args) < 2 {
		return pdberr.New(pdberr.InvalidArgument, "usage: register <read|write> <name> [value]")
	}
	info, err := inferior.ByName(args[1])
	if err != nil {
		return err
	}

	switch {
	case matches(args[0], "read"):
		val, err := r.proc.Registers().Read(info)
		if err != nil {
			return err
		}
		switch val.Kind {
		case inferior.KindFloat64:
			fmt.Fprintf(r.out, "%s = %g\n", info.Name, val.F64)
		case inferior.KindLongDouble:
			fmt.Fprintf(r.out, "%s = %g\n", info.Name, val.Float64())
		case inferior.KindBytes8:
			fmt.Fprintf(r.out, "%s = % x\n", info.Name, val.B8)
		case inferior.KindBytes16:
			fmt.Fprintf(r.out, "%s = % x\n", info.Name, val.B16)
		default:
			fmt.Fprintf(r.out, "%s = %#x\n", info.Name, val.U64)
		}
		return nil
	case matches(args[0], "write"):
		if len(args) < 3 {
			return pdberr.New(pdberr.InvalidArgument, "usage: register write <name> <value>")
		}
		n, err := parseUint(args[2])
		if err != nil {
			return pdberr.Wrap(pdberr.InvalidArgument, "bad register value", err)
		}
		if info.Size < 8 && n>>(8*uint(info.Size)) != 0 {
			return pdberr.New(pdberr.InvalidArgument, "value too large for register "+info.Name)
		}
		var val inferior.RegisterValue
		switch info.Size {
		case 1:
			val = inferior.U8(uint8(n))
		case 2:
			val = inferior.U16(uint16(n))
		case 4:
			val = inferior.U32(uint32(n))
		default:
			val = inferior.U64(n)
		}
		return r.proc.Registers().Write(info, val)
	default:
		return pdberr.New(pdberr.InvalidArgument, "register subcommand must be read or write")
	}
}

func parseUint(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// cmdWatch polls the inferior's pid for the given number of seconds
// (default 3), printing its external /proc state character every 200ms,
// and stops early on the first read error. The polling runs in a single
// errgroup goroutine that reads only /proc; the command neither resumes
// the inferior nor waits on it while watching. This is the one place the
// front end starts a goroutine; the inferior package itself never does.
func (r *REPL) cmdWatch(args []string) error {
	seconds := 3
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return pdberr.Wrap(pdberr.InvalidArgument, "bad watch duration", err)
		}
		seconds = n
	}

	g := new(errgroup.Group)
	done := make(chan struct{})
	pid := r.proc.Pid()

	g.Go(func() error {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.After(time.Duration(seconds) * time.Second)
		for {
			select {
			case <-done:
				return nil
			case <-deadline:
				close(done)
				return nil
			case <-ticker.C:
				state, err := procStateChar(pid)
				if err != nil {
					close(done)
					return err
				}
				fmt.Fprintf(r.out, "pid %d external state: %c\n", pid, state)
			}
		}
	})

	return g.Wait()
}
