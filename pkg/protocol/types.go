package protocol

// Wire types for execute-mode flushes.
// A guest that flushes in execute mode writes either a single Command or a
// JSON array of Commands into the text buffer.

import (
	"bytes"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.Config{
	UseNumber:              true,
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Built-in host commands.
const (
	CommandLog    = "log"
	CommandPrint  = "print"
	CommandCall   = "call"
	CommandResize = "resize"
)

// Command is a tagged host command with positional arguments.
// Numbers decode as json.Number so integer arguments keep full precision.
type Command struct {
	Name string `json:"cmd"`
	Args []any  `json:"args,omitempty"`
}

// ErrEmpty is returned when a snippet holds no command.
var ErrEmpty = errors.New("empty command snippet")

// Encode serializes one command, or an array when more than one is given.
func Encode(cmds ...Command) ([]byte, error) {
	if len(cmds) == 1 {
		return jsonAPI.Marshal(cmds[0])
	}
	return jsonAPI.Marshal(cmds)
}

// Decode parses a snippet holding a Command or an array of Commands.
func Decode(data []byte) ([]Command, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	if data[0] == '[' {
		var cmds []Command
		if err := jsonAPI.Unmarshal(data, &cmds); err != nil {
			return nil, err
		}
		if len(cmds) == 0 {
			return nil, ErrEmpty
		}
		return cmds, nil
	}

	var cmd Command
	if err := jsonAPI.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return []Command{cmd}, nil
}
