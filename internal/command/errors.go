package command

import (
	"fmt"
)

// MalformedCommandError occurs when a snippet is not a valid command document.
type MalformedCommandError struct {
	Snippet string
	Err     error
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed command %q: %v", e.Snippet, e.Err)
}

func (e *MalformedCommandError) Unwrap() error {
	return e.Err
}

// UnknownCommandError occurs when no handler is registered for a command.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command '%s'", e.Name)
}

// ArgumentError occurs when a command argument is missing or has the wrong type.
type ArgumentError struct {
	Command string
	Index   int
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("command '%s' argument %d: %s", e.Command, e.Index, e.Message)
}

// CommandError wraps a handler failure with the command's position in the
// snippet.
type CommandError struct {
	Name  string
	Index int
	Err   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command #%d '%s' failed: %v", e.Index, e.Name, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
