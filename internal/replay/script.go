// Package replay drives a headless view from a line-based script, which is
// how navigation and bridge traffic are reproduced outside a toolkit.
//
// Each non-empty line holds one command; '#' starts a comment line.
//
//	nav https://example.com
//	back
//	forward
//	reload
//	title Example Domain
//	msg {"callbackId":1,"methodName":"ping"}
//	eval document.title
//	poll
package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Op names one script command.
type Op string

const (
	OpNavigate Op = "nav"
	OpBack     Op = "back"
	OpForward  Op = "forward"
	OpReload   Op = "reload"
	OpTitle    Op = "title"
	OpMessage  Op = "msg"
	OpEval     Op = "eval"
	OpPoll     Op = "poll"
)

var ErrSyntax = errors.New("replay: syntax error")

// Step is one parsed command.
type Step struct {
	Line int
	Op   Op
	Arg  string
}

func (s Step) String() string {
	if s.Arg == "" {
		return string(s.Op)
	}
	return string(s.Op) + " " + s.Arg
}

var argRequired = map[Op]bool{
	OpNavigate: true,
	OpBack:     false,
	OpForward:  false,
	OpReload:   false,
	OpTitle:    false,
	OpMessage:  true,
	OpEval:     true,
	OpPoll:     false,
}

// Parse reads a script. Errors name the offending line.
func Parse(r io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		name, arg, _ := strings.Cut(text, " ")
		op := Op(strings.ToLower(name))
		needsArg, known := argRequired[op]
		if !known {
			return nil, fmt.Errorf("%w: line %d: unknown command %q", ErrSyntax, line, name)
		}
		arg = strings.TrimSpace(arg)
		if needsArg && arg == "" {
			return nil, fmt.Errorf("%w: line %d: %s needs an argument", ErrSyntax, line, op)
		}
		if !needsArg && arg != "" && op != OpTitle {
			return nil, fmt.Errorf("%w: line %d: %s takes no argument", ErrSyntax, line, op)
		}
		steps = append(steps, Step{Line: line, Op: op, Arg: arg})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: read script: %w", err)
	}
	return steps, nil
}
