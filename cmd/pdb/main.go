// main.go - pdb command line: launch a program under trace, or attach
// to a running one, and drop into the register/lifecycle REPL.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/intuitionamiga/pdb/internal/inferior"
	"github.com/intuitionamiga/pdb/internal/repl"
)

func main() {
	pid := flag.Int("p", 0, "attach to an already-running pid instead of launching a program")
	verbose := flag.Bool("v", false, "enable debug-level logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-p pid] [program args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	proc, err := attachOrLaunch(*pid, flag.Args(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not start debugging session")
	}
	defer proc.Close()

	if err := repl.New(proc, os.Stdin, os.Stdout, log).Run(); err != nil {
		log.Fatal().Err(err).Msg("repl exited with an error")
	}
}

func attachOrLaunch(pid int, args []string, log zerolog.Logger) (*inferior.Process, error) {
	if pid != 0 {
		log.Debug().Int("pid", pid).Msg("attaching")
		return inferior.Attach(pid, inferior.WithLogger(log))
	}
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	log.Debug().Str("path", args[0]).Strs("args", args[1:]).Msg("launching")
	return inferior.Launch(args[0], inferior.WithArgs(args[1:]...), inferior.WithLogger(log))
}
