package uci

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
)

const consoleHelp = `Commands:
  position startpos|fen <fen> [moves <m1> <m2> ...]
  go [depth N] [movetime MS] [infinite]
  stop, d, eval, perft N
  setoption name <name> value <value>
  help, quit`

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// Console runs the protocol interactively with line editing and history.
// Each search waits for its bestmove before the prompt returns.
func (u *UCI) Console(historyFile string) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mhumanchess>\033[0m ",
		HistoryFile:     historyFile,
		EOFPrompt:       "quit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	u.SetOutput(l.Stdout())
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		if !u.ConsoleLine(line) {
			break
		}
	}
	u.handleStop()
	log.Debug().Msg("exiting-console")
	return nil
}

// ConsoleLine runs one console line. Arguments may be quoted, so a FEN can
// be given as a single word: position fen "8/8/8/8/8/8/8/K6k w - - 0 1".
func (u *UCI) ConsoleLine(line string) bool {
	fields, err := shellquote.Split(line)
	if err != nil {
		u.send("Error: %v", err)
		return true
	}
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "help":
		u.send("%s", consoleHelp)
		return true
	case "exit":
		fields[0] = "quit"
	}

	keepGoing := u.Handle(strings.Join(fields, " "))
	if fields[0] == "go" && !strings.Contains(line, "infinite") {
		u.Wait()
	}
	return keepGoing
}
