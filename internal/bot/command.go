package bot

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CommandPrefix starts an explicit command.
const CommandPrefix = "/"

// Command is the result of ParseCommand.
type Command struct {
	Name     string // lower case, without prefix or "@bot" suffix
	Args     string
	Explicit bool // text started with CommandPrefix
}

// ParseCommand splits text into a command name and its arguments.
//
//	ParseCommand("/Bus  Dhanmondi")        // {Name: "bus", Args: "Dhanmondi", Explicit: true}
//	ParseCommand("/start@MetroMateBot")    // {Name: "start", Explicit: true}
//	ParseCommand("weekly_routine")         // {Name: "weekly_routine"}
//
// The name is only meaningful when a handler is registered for it.
func ParseCommand(text string) Command {
	text = Sanitize(text)
	if text == "" {
		return Command{}
	}

	var cmd Command
	if rest, ok := strings.CutPrefix(text, CommandPrefix); ok {
		cmd.Explicit = true
		text = strings.TrimSpace(rest)
	}

	name, args, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	cmd.Name = cases.Fold().String(name)
	cmd.Args = strings.TrimSpace(args)
	return cmd
}

// Standalone reports whether the command can be dispatched without further
// context: it had the prefix, or the message was nothing but the name.
// "help me with OOP" is a question, not /help.
func (c Command) Standalone() bool {
	return c.Name != "" && (c.Explicit || c.Args == "")
}

// Sanitize puts text in NFC and collapses runs of whitespace to one space.
func Sanitize(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}
