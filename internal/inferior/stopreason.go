// stopreason.go - process state machine and wait-status decoding

package inferior

import "golang.org/x/sys/unix"

// ProcessState is the inferior's place in its lifecycle state machine.
type ProcessState int

const (
	StateStopped ProcessState = iota
	StateRunning
	StateExited
	StateTerminated
)

func (s ProcessState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StopReason decodes a single wait(2)/waitpid(2) status report: exactly
// one of the three things a tracee can do between two resumes.
type StopReason struct {
	State      ProcessState
	ExitStatus int // valid when State == StateExited
	Signal     unix.Signal // valid when State == StateStopped or StateTerminated
}

// decodeStatus converts a raw wait status into a StopReason. It never
// falls through a matched WIFSTOPPED/WIFEXITED/WIFSIGNALED case into the
// others: each branch returns immediately.
func decodeStatus(ws unix.WaitStatus) StopReason {
	if ws.Exited() {
		return StopReason{State: StateExited, ExitStatus: ws.ExitStatus()}
	}
	if ws.Signaled() {
		return StopReason{State: StateTerminated, Signal: ws.Signal()}
	}
	if ws.Stopped() {
		return StopReason{State: StateStopped, Signal: ws.StopSignal()}
	}
	// Neither exited, signaled, nor stopped: continued (SIGCONT) or an
	// otherwise unrepresented status. Treat as still running rather than
	// guessing a terminal state.
	return StopReason{State: StateRunning}
}
