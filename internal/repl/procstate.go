// procstate.go - reads /proc/<pid>/stat for the watch command's
// independent, external view of process state, distinct from whatever
// the tracer itself believes.

package repl

import (
	"os"
	"strconv"
	"strings"

	"github.com/intuitionamiga/pdb/internal/pdberr"
)

// procStateChar returns the state character from /proc/<pid>/stat's
// third field (R, S, D, Z, T, t, ...). The comm field is parenthesized
// and may itself contain spaces or parens, so the split anchors on the
// last ')' rather than splitting on whitespace from the start.
func procStateChar(pid int) (byte, error) {
	raw, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, pdberr.Wrap(pdberr.IoError, "could not read /proc stat", err)
	}

	s := string(raw)
	i := strings.LastIndexByte(s, ')')
	if i < 0 || i+2 >= len(s) {
		return 0, pdberr.New(pdberr.IoError, "malformed /proc/pid/stat")
	}
	fields := strings.Fields(s[i+2:])
	if len(fields) == 0 {
		return 0, pdberr.New(pdberr.IoError, "malformed /proc/pid/stat")
	}
	return fields[0][0], nil
}
