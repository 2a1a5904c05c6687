// pipe.go - unidirectional byte channel used to capture a launched child's stdout

package inferior

import (
	"golang.org/x/sys/unix"

	"github.com/intuitionamiga/pdb/internal/pdberr"
)

const (
	readFd  = 0
	writeFd = 1

	pipeReadBufSize = 1024
)

// pipe owns two file descriptors and guarantees they are closed on Close.
// A descriptor of -1 means that end is already closed/released.
type pipe struct {
	fds [2]int
}

// newPipe creates an OS pipe. When closeOnExec is true both ends carry
// the close-on-exec flag so a subsequent exec() in a forked child closes
// them automatically without a chance for the child to observe them.
func newPipe(closeOnExec bool) (*pipe, error) {
	var fds [2]int
	flags := 0
	if closeOnExec {
		flags = unix.O_CLOEXEC
	}
	if err := unix.Pipe2(fds[:], flags); err != nil {
		return nil, pdberr.Wrap(pdberr.IoError, "pipe creation failed", err)
	}
	return &pipe{fds: [2]int{fds[readFd], fds[writeFd]}}, nil
}

// closeRead is idempotent.
func (p *pipe) closeRead() {
	if p.fds[readFd] != -1 {
		_ = unix.Close(p.fds[readFd])
		p.fds[readFd] = -1
	}
}

// closeWrite is idempotent.
func (p *pipe) closeWrite() {
	if p.fds[writeFd] != -1 {
		_ = unix.Close(p.fds[writeFd])
		p.fds[writeFd] = -1
	}
}

// releaseRead hands the read fd to the caller, who now owns closing it.
func (p *pipe) releaseRead() int {
	fd := p.fds[readFd]
	p.fds[readFd] = -1
	return fd
}

// releaseWrite hands the write fd to the caller, who now owns closing it.
func (p *pipe) releaseWrite() int {
	fd := p.fds[writeFd]
	p.fds[writeFd] = -1
	return fd
}

// read performs one read of up to pipeReadBufSize bytes from the read end.
// A zero-length, nil-error result signals EOF.
func (p *pipe) read() ([]byte, error) {
	buf := make([]byte, pipeReadBufSize)
	n, err := unix.Read(p.fds[readFd], buf)
	if n < 0 {
		n = 0
	}
	if err != nil {
		return nil, pdberr.Wrap(pdberr.IoError, "could not read from pipe", err)
	}
	return buf[:n], nil
}

// write writes all of b to the write end, retrying on short writes.
func (p *pipe) write(b []byte) error {
	for len(b) > 0 {
		n, err := unix.Write(p.fds[writeFd], b)
		if err != nil {
			return pdberr.Wrap(pdberr.IoError, "could not write to pipe", err)
		}
		b = b[n:]
	}
	return nil
}

// close closes both ends. Safe to call multiple times.
func (p *pipe) close() {
	p.closeRead()
	p.closeWrite()
}
