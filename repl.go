package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dkmn/drift/audio"
	"github.com/dkmn/drift/dub"
)

type session struct {
	machine *audio.Machine
}

func (s *session) eval(input string) error {
	cmds, err := dub.Parse(input)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := s.run(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) run(cmd dub.Command) error {
	name := string(cmd.Name)
	for _, c := range commands {
		if name != c.name {
			continue
		}
		switch {
		case c.arity == variadic:
			// the command checks its own argument count
		case c.arity < 0:
			if arity := -c.arity; len(cmd.Args) < arity {
				return fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
					c.name, arity, len(cmd.Args))
			}
		case len(cmd.Args) != c.arity:
			return fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				c.name, c.arity, len(cmd.Args))
		}
		if err := c.run(s, cmd.Args); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s", name)
}

func repl(s *session) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := s.eval(line); err != nil {
			fmt.Println(err)
		}
	}
}

type command struct {
	name  string
	run   func(*session, []dub.Node) error
	arity int // -n means len(args) must be >= n
}

// variadic marks a command that checks its own argument count.
const variadic = -1 << 16

// readArgs fills slots from argument nodes, converting where the
// conversion cannot lose information. Identifiers and strings are
// interchangeable as string slots.
func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return fmt.Errorf("want %d arguments, got %d", len(slots), len(args))
	}
	for n, arg := range args {
		switch p := slots[n].(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument %d: expected a string or identifier", n+1)
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Int:
				*p = float64(v)
			case dub.Float:
				*p = float64(v)
			default:
				return fmt.Errorf("argument %d: expected a number", n+1)
			}
		case *int:
			v, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument %d: expected an integer", n+1)
			}
			*p = int(v)
		case *dub.StepExpr:
			v, ok := arg.(dub.StepExpr)
			if !ok {
				return fmt.Errorf("argument %d: expected a step expression", n+1)
			}
			*p = v
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}

func engineIndex(n int) (int, error) {
	if n < 1 || n > audio.NumEngines {
		return 0, fmt.Errorf("engine number out of range: %d", n)
	}
	return n - 1, nil
}

func lfoIndex(n int) (int, error) {
	if n < 1 || n > audio.NumLFOs {
		return 0, fmt.Errorf("lfo number out of range: %d", n)
	}
	return n - 1, nil
}
