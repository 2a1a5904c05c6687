// process.go - inferior lifecycle: launch, attach, resume, wait

package inferior

import (
	"encoding/binary"
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/intuitionamiga/pdb/internal/pdberr"
)

// Option customizes a Launch or Attach call.
type Option func(*config)

// LaunchOption is an alias of Option, named separately to mark the
// options only Launch reads; Attach accepts them but uses only the logger.
type LaunchOption = Option

type config struct {
	args       []string
	captureOut bool
	debug      bool
	log        zerolog.Logger
}

// WithArgs sets the argv the launched program receives after argv[0].
func WithArgs(args ...string) LaunchOption {
	return func(c *config) { c.args = args }
}

// WithStdout redirects the child's stdout into a pipe the tracer can
// read back with Process.ReadStdout, instead of inheriting the
// tracer's own stdout.
func WithStdout() LaunchOption {
	return func(c *config) { c.captureOut = true }
}

// WithDebug controls whether Launch traces the child at all. The
// default, true, arms PTRACE_TRACEME before exec and blocks until the
// resulting SIGTRAP is collected. WithDebug(false) starts the program
// as a plain, untraced child: Launch returns immediately with the
// process already in StateRunning and not marked attached, so a
// separate later Attach(pid) is what begins tracing it.
func WithDebug(debug bool) LaunchOption {
	return func(c *config) { c.debug = debug }
}

// WithLogger attaches a zerolog.Logger a Process uses for best-effort
// diagnostics about swallowed cleanup failures (Close, the finalizer).
// Defaults to zerolog.Nop(); never used for errors returned to callers.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// Process is a single traced inferior: its pid, its place in the
// lifecycle state machine, and the register file mirroring its kernel
// user area.
type Process struct {
	pid            int
	state          ProcessState
	terminateOnEnd bool
	isAttached     bool
	regs           *RegisterFile
	stdoutPipe     *pipe
	log            zerolog.Logger
}

// Launch starts path under ptrace, stopped at its first instruction
// after exec (unless WithDebug(false) was given). When tracing, the
// calling goroutine is pinned to its OS thread for the returned
// Process's entire lifetime: ptrace ties a tracee to the thread that is tracing it, so
// every subsequent call that touches this Process (Resume,
// WaitOnSignal, register reads/writes) must run on the same goroutine
// that called Launch. Close releases the pin.
func Launch(path string, opts ...LaunchOption) (*Process, error) {
	if path == "" {
		return nil, pdberr.New(pdberr.InvalidArgument, "launch path must not be empty")
	}
	cfg := config{debug: true, log: zerolog.Nop()}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.debug {
		runtime.LockOSThread()
	}

	stdout := os.Stdout
	var outPipe *pipe
	if cfg.captureOut {
		var err error
		outPipe, err = newPipe(false)
		if err != nil {
			if cfg.debug {
				runtime.UnlockOSThread()
			}
			return nil, err
		}
		stdout = os.NewFile(uintptr(outPipe.releaseWrite()), "child-stdout")
	}

	argv := append([]string{path}, cfg.args...)
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Files: []*os.File{os.Stdin, stdout, os.Stderr},
		Sys:   &syscall.SysProcAttr{Ptrace: cfg.debug},
	})
	if outPipe != nil {
		_ = stdout.Close()
	}
	if err != nil {
		if outPipe != nil {
			outPipe.close()
		}
		if cfg.debug {
			runtime.UnlockOSThread()
		}
		return nil, pdberr.Wrap(pdberr.ChildStartup, "exec failed", err)
	}

	p := &Process{
		pid:            proc.Pid,
		terminateOnEnd: true,
		isAttached:     cfg.debug,
		stdoutPipe:     outPipe,
		log:            cfg.log,
	}
	p.regs = newRegisterFile(p)
	runtime.SetFinalizer(p, (*Process).finalize)

	if !cfg.debug {
		p.state = StateRunning
		return p, nil
	}

	p.state = StateStopped
	// PTRACE_TRACEME arms a SIGTRAP on the child's own successful exec;
	// collect it before the caller can issue any other command.
	if _, err := p.WaitOnSignal(); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return p, nil
}

// Attach begins tracing an already-running process by pid, such as one
// started earlier with Launch(path, WithDebug(false)).
func Attach(pid int, opts ...Option) (*Process, error) {
	if pid <= 0 {
		return nil, pdberr.New(pdberr.InvalidArgument, "attach requires a positive pid")
	}
	cfg := config{log: zerolog.Nop()}
	for _, o := range opts {
		o(&cfg)
	}

	runtime.LockOSThread()

	if err := unix.PtraceAttach(pid); err != nil {
		runtime.UnlockOSThread()
		return nil, pdberr.Wrap(pdberr.IoError, "PTRACE_ATTACH failed", err)
	}

	p := &Process{pid: pid, state: StateStopped, terminateOnEnd: false, isAttached: true, log: cfg.log}
	p.regs = newRegisterFile(p)
	runtime.SetFinalizer(p, (*Process).finalize)

	if _, err := p.WaitOnSignal(); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return p, nil
}

// Pid returns the traced process's pid.
func (p *Process) Pid() int { return p.pid }

// State reports the inferior's current lifecycle state.
func (p *Process) State() ProcessState { return p.state }

// Registers returns the live register file, refreshed on every stop.
func (p *Process) Registers() *RegisterFile { return p.regs }

// Resume continues a stopped inferior. It is an error to resume a
// process that is not currently stopped.
func (p *Process) Resume() error {
	if p.state != StateStopped {
		return pdberr.New(pdberr.InvalidArgument, "resume requires a stopped process")
	}
	if err := unix.PtraceCont(p.pid, 0); err != nil {
		return pdberr.Wrap(pdberr.IoError, "PTRACE_CONT failed", err)
	}
	p.state = StateRunning
	return nil
}

// WaitOnSignal blocks until the inferior reports a new status, decodes
// it into a StopReason, and, if the inferior stopped (rather than
// exiting or being killed), refreshes the register file from the
// kernel before returning.
func (p *Process) WaitOnSignal() (StopReason, error) {
	var ws unix.WaitStatus
	if _, err := unix.Wait4(p.pid, &ws, 0, nil); err != nil {
		return StopReason{}, pdberr.Wrap(pdberr.IoError, "waitpid failed", err)
	}

	reason := decodeStatus(ws)
	p.state = reason.State

	if reason.State == StateStopped {
		if err := p.readAllRegisters(); err != nil {
			return reason, err
		}
	}
	return reason, nil
}

// ReadStdout performs one read of up to 1024 bytes from the inferior's
// redirected stdout, blocking until data or EOF is available; an empty
// result means EOF. Only valid when Launch was given WithStdout.
func (p *Process) ReadStdout() ([]byte, error) {
	if p.stdoutPipe == nil {
		return nil, pdberr.New(pdberr.InvalidArgument, "process was not launched with WithStdout")
	}
	return p.stdoutPipe.read()
}

// Close detaches from the inferior if it is traced, then kills and reaps
// it if this package launched it (an attached process is left running),
// and releases the OS thread pin taken by Launch/Attach.
// Safe to call more than once. Kernel failures here are never returned
// to the caller: they are logged at debug level and swallowed, since by
// this point the caller has already decided it is done with the
// process.
func (p *Process) Close() error {
	runtime.SetFinalizer(p, nil)
	defer runtime.UnlockOSThread()

	if p.stdoutPipe != nil {
		p.stdoutPipe.close()
		p.stdoutPipe = nil
	}
	if p.pid == 0 {
		return nil
	}

	if p.isAttached {
		if p.state == StateRunning {
			if err := unix.Kill(p.pid, unix.SIGSTOP); err != nil {
				p.log.Debug().Err(err).Int("pid", p.pid).Msg("SIGSTOP before detach failed")
			}
			if _, err := unix.Wait4(p.pid, nil, 0, nil); err != nil {
				p.log.Debug().Err(err).Int("pid", p.pid).Msg("wait before detach failed")
			}
		}
		if err := unix.PtraceDetach(p.pid); err != nil {
			p.log.Debug().Err(err).Int("pid", p.pid).Msg("PTRACE_DETACH failed")
		}
		// PTRACE_DETACH does not clear a SIGSTOP-induced group-stop, so
		// without this the inferior would be left permanently stopped
		// instead of running under its own controller once detached.
		if err := unix.Kill(p.pid, unix.SIGCONT); err != nil {
			p.log.Debug().Err(err).Int("pid", p.pid).Msg("SIGCONT after detach failed")
		}
	}
	if p.terminateOnEnd {
		if err := unix.Kill(p.pid, unix.SIGKILL); err != nil {
			p.log.Debug().Err(err).Int("pid", p.pid).Msg("SIGKILL failed")
		}
		if _, err := unix.Wait4(p.pid, nil, 0, nil); err != nil {
			p.log.Debug().Err(err).Int("pid", p.pid).Msg("wait after kill failed")
		}
	}

	p.pid = 0
	return nil
}

// finalize is the last-resort cleanup a forgotten Process falls back
// on; callers should still call Close explicitly.
func (p *Process) finalize() {
	if p.pid != 0 {
		p.log.Debug().Int("pid", p.pid).Msg("process garbage collected without an explicit Close")
	}
	_ = p.Close()
}

// readAllRegisters pulls the GPR block, FPR/SSE block, and debug
// register array from the kernel in one refresh.
func (p *Process) readAllRegisters() error {
	var gpr unix.PtraceRegs
	if err := unix.PtraceGetRegs(p.pid, &gpr); err != nil {
		return pdberr.Wrap(pdberr.IoError, "PTRACE_GETREGS failed", err)
	}
	p.regs.setGPRBlock((*[gprBlockSize]byte)(unsafe.Pointer(&gpr))[:])

	var fpr unix.PtraceFpRegs
	if err := unix.PtraceGetFpRegs(p.pid, &fpr); err != nil {
		return pdberr.Wrap(pdberr.IoError, "PTRACE_GETFPREGS failed", err)
	}
	p.regs.setFPRBlock((*[fprBlockSize]byte)(unsafe.Pointer(&fpr))[:])

	for i := 0; i < drCount; i++ {
		var out [8]byte
		if _, err := unix.PtracePeekUser(p.pid, uintptr(drBase+i*8), out[:]); err != nil {
			return pdberr.Wrap(pdberr.IoError, "PTRACE_PEEKUSER failed", err)
		}
		p.regs.setDebugReg(i, binary.LittleEndian.Uint64(out[:]))
	}
	return nil
}

// writeFPRegs implements the writer interface RegisterFile uses for
// whole-block FPR/SSE writes.
func (p *Process) writeFPRegs(buf []byte) error {
	var fpr unix.PtraceFpRegs
	if len(buf) != fprBlockSize {
		return pdberr.New(pdberr.InvalidRegister, "fpregs buffer size mismatch")
	}
	copy((*[fprBlockSize]byte)(unsafe.Pointer(&fpr))[:], buf)
	if err := unix.PtraceSetFpRegs(p.pid, &fpr); err != nil {
		return pdberr.Wrap(pdberr.IoError, "PTRACE_SETFPREGS failed", err)
	}
	return nil
}

// pokeUser implements the writer interface RegisterFile uses for
// single-word GPR/debug-register writes. offset must already be
// 8-byte-aligned.
func (p *Process) pokeUser(offset int, word uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], word)
	if _, err := unix.PtracePokeUser(p.pid, uintptr(offset), buf[:]); err != nil {
		return pdberr.Wrap(pdberr.IoError, "PTRACE_POKEUSER failed", err)
	}
	return nil
}
