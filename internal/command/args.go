package command

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args are the positional arguments of one command.
type Args struct {
	command string
	values  []any
}

// NewArgs wraps raw values for the named command.
func NewArgs(command string, values []any) Args {
	return Args{command: command, values: values}
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a.values)
}

// String returns argument i as a string.
func (a Args) String(i int) (string, error) {
	v, err := a.at(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", a.errorf(i, "expected string, got %T", v)
	}
	return s, nil
}

// Int returns argument i as an integer.
func (a Args) Int(i int) (int64, error) {
	v, err := a.at(i)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, a.errorf(i, "expected integer, got %s", n)
		}
		return parsed, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, a.errorf(i, "integer %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, a.errorf(i, "expected integer, got %v", n)
		}
		return int64(n), nil
	default:
		return 0, a.errorf(i, "expected integer, got %T", v)
	}
}

// Uint32 returns argument i as an unsigned 32-bit integer.
func (a Args) Uint32(i int) (uint32, error) {
	n, err := a.Int(i)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, a.errorf(i, "%d out of uint32 range", n)
	}
	return uint32(n), nil
}

// Uint64s converts every argument from index from onward into a wasm call
// parameter. Negative integers are passed in two's complement.
func (a Args) Uint64s(from int) ([]uint64, error) {
	if from >= len(a.values) {
		return nil, nil
	}
	params := make([]uint64, 0, len(a.values)-from)
	for i := from; i < len(a.values); i++ {
		n, err := a.Int(i)
		if err != nil {
			return nil, err
		}
		params = append(params, uint64(n))
	}
	return params, nil
}

// Join renders every argument with fmt's %v, space separated.
func (a Args) Join() string {
	var sb strings.Builder
	for i, v := range a.values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, v)
	}
	return sb.String()
}

func (a Args) at(i int) (any, error) {
	if i < 0 || i >= len(a.values) {
		return nil, a.errorf(i, "missing (have %d)", len(a.values))
	}
	return a.values[i], nil
}

func (a Args) errorf(i int, format string, args ...any) error {
	return &ArgumentError{
		Command: a.command,
		Index:   i,
		Message: fmt.Sprintf(format, args...),
	}
}
