// command.go - REPL line parsing: split, prefix matching, dispatch table

package repl

import "strings"

// Command is one parsed REPL input line: a name and its argument words.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into a Command. Blank lines parse
// to a Command with an empty Name, which Run skips as a no-op
// (pressing enter to repeat nothing, matching original_source's REPL).
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: fields[0], Args: fields[1:]}
}

// isPrefix reports whether of starts with s and s is not empty, the
// same shorthand-matching rule original_source's is_prefix uses so
// "c", "co", "cont" and "continue" all resolve to the same command.
func isPrefix(s, of string) bool {
	if s == "" {
		return false
	}
	return strings.HasPrefix(of, s)
}

// matches reports whether name was typed as a recognized abbreviation
// of any of full.
func matches(name string, full ...string) bool {
	for _, f := range full {
		if isPrefix(name, f) {
			return true
		}
	}
	return false
}
