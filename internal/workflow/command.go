package workflow

import (
	"strconv"
	"strings"
)

// Command is one program invocation: a program name and its ordered
// arguments. Arguments are kept unquoted until Render.
type Command struct {
	Program string
	Args    []string
}

// Cmd starts a command for program with optional initial arguments.
func Cmd(program string, args ...string) Command {
	return Command{Program: program, Args: append([]string(nil), args...)}
}

// Arg returns a copy of c with args appended.
func (c Command) Arg(args ...string) Command {
	out := Command{Program: c.Program, Args: make([]string, 0, len(c.Args)+len(args))}
	out.Args = append(out.Args, c.Args...)
	out.Args = append(out.Args, args...)
	return out
}

// Int appends a flag followed by an integer value.
func (c Command) Int(flag string, v int) Command {
	return c.Arg(flag, strconv.Itoa(v))
}

// Fields appends every whitespace-separated field of s. It is used for
// pass-through option strings such as the active-module selection.
func (c Command) Fields(s string) Command {
	return c.Arg(strings.Fields(s)...)
}

// ArgIf appends args only when cond holds.
func (c Command) ArgIf(cond bool, args ...string) Command {
	if !cond {
		return c
	}
	return c.Arg(args...)
}

// Render produces the shell form of the command.
func (c Command) Render() string {
	var sb strings.Builder
	sb.WriteString(c.Program)
	for _, a := range c.Args {
		sb.WriteByte(' ')
		sb.WriteString(quote(a))
	}
	return sb.String()
}

// Op joins two commands of a Script.
type Op string

const (
	OpSeq  Op = ";"
	OpPipe Op = "|"
)

type scriptPart struct {
	op  Op
	cmd Command
}

// Script is an ordered chain of commands. The zero value is empty.
type Script struct {
	parts []scriptPart
}

// NewScript chains cmds sequentially.
func NewScript(cmds ...Command) Script {
	var s Script
	for _, c := range cmds {
		s = s.Then(c)
	}
	return s
}

// Then appends c to run after the previous command.
func (s Script) Then(c Command) Script {
	return s.join(OpSeq, c)
}

// Pipe appends c reading the previous command's standard output.
func (s Script) Pipe(c Command) Script {
	return s.join(OpPipe, c)
}

func (s Script) join(op Op, c Command) Script {
	parts := make([]scriptPart, len(s.parts), len(s.parts)+1)
	copy(parts, s.parts)
	return Script{parts: append(parts, scriptPart{op: op, cmd: c})}
}

// Commands returns the commands of s in order.
func (s Script) Commands() []Command {
	out := make([]Command, len(s.parts))
	for i, p := range s.parts {
		out[i] = p.cmd
	}
	return out
}

// Empty reports whether s has no commands.
func (s Script) Empty() bool { return len(s.parts) == 0 }

// Render produces the shell form of the whole chain.
func (s Script) Render() string {
	var sb strings.Builder
	for i, p := range s.parts {
		if i > 0 {
			if p.op == OpSeq {
				sb.WriteString("; ")
			} else {
				sb.WriteString(" | ")
			}
		}
		sb.WriteString(p.cmd.Render())
	}
	return sb.String()
}

// shellSpecial are characters that force an argument into double quotes.
// '$' is left alone so variables still expand; '*' and '?' are left alone so
// globs still match.
const shellSpecial = " \t\n;|&<>()'\"\\`"

func quote(a string) string {
	if a == "" {
		return `""`
	}
	if !strings.ContainsAny(a, shellSpecial) {
		return a
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`")
	return `"` + r.Replace(a) + `"`
}
