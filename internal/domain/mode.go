package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidMode unknown execution mode.
var ErrInvalidMode = errors.New("invalid execution mode")

// ExecutionMode controls how orders reach the exchange.
type ExecutionMode int

const (
	// ModeSimulation logs orders, never calls the exchange.
	ModeSimulation ExecutionMode = iota
	// ModeInteractive asks before every order.
	ModeInteractive
	// ModeAuto places orders without confirmation.
	ModeAuto
)

// ParseExecutionMode parses simulation|interactive|auto.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simulation", "simulate", "dry-run":
		return ModeSimulation, nil
	case "interactive", "confirm":
		return ModeInteractive, nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeSimulation, errors.Wrapf(ErrInvalidMode, "%q", s)
	}
}

func (m ExecutionMode) String() string {
	switch m {
	case ModeSimulation:
		return "simulation"
	case ModeInteractive:
		return "interactive"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ExecutionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ExecutionMode) UnmarshalText(text []byte) error {
	parsed, err := ParseExecutionMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
