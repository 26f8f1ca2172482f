package tello

import (
	"fmt"
	"strconv"
	"strings"
)

// Addressing of the drone on its own access point.
const (
	DefaultIP          = "192.168.10.1"
	DefaultCommandPort = 8889
)

// Movement distances accepted by the SDK, in centimetres.
const (
	MinDistance = 20
	MaxDistance = 500
)

// Command is one line of the drone's text protocol, such as "takeoff" or
// "forward 20". The zero value is not a valid command.
type Command struct {
	text string
}

var (
	// SDKMode switches the drone into its command-accepting mode.
	SDKMode   = Command{"command"}
	Takeoff   = Command{"takeoff"}
	Land      = Command{"land"}
	Emergency = Command{"emergency"}
)

// Direction of a relative move.
type Direction string

const (
	Forward Direction = "forward"
	Back    Direction = "back"
	Left    Direction = "left"
	Right   Direction = "right"
	Up      Direction = "up"
	Down    Direction = "down"
)

// FlipDirection is the single-letter argument of the flip command.
type FlipDirection string

const (
	FlipLeft    FlipDirection = "l"
	FlipRight   FlipDirection = "r"
	FlipForward FlipDirection = "f"
	FlipBack    FlipDirection = "b"
)

// Move builds "<direction> <distance>".
func Move(d Direction, distance int) Command {
	return Command{fmt.Sprintf("%s %d", d, distance)}
}

func Flip(d FlipDirection) Command {
	return Command{"flip " + string(d)}
}

func (c Command) String() string { return c.text }

// Len is the number of bytes of the command line, terminator excluded.
func (c Command) Len() int { return len(c.text) }

// Verb is the first word of the command.
func (c Command) Verb() string {
	verb, _, _ := strings.Cut(c.text, " ")
	return verb
}

func (c Command) IsZero() bool { return c.text == "" }

// ParseCommand validates free text against the drone command set. Move
// commands take an optional distance in [MinDistance, MaxDistance].
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, ErrUnknownCommand
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "command", "takeoff", "land", "emergency":
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%w: %s takes no argument", ErrBadArgument, verb)
		}
		return Command{verb}, nil

	case "flip":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: flip needs a direction", ErrBadArgument)
		}
		switch d := FlipDirection(strings.ToLower(args[0])); d {
		case FlipLeft, FlipRight, FlipForward, FlipBack:
			return Flip(d), nil
		default:
			return Command{}, fmt.Errorf("%w: flip direction %q", ErrBadArgument, args[0])
		}

	case string(Forward), string(Back), string(Left), string(Right), string(Up), string(Down):
		switch len(args) {
		case 0:
			return Command{verb}, nil
		case 1:
			distance, err := strconv.Atoi(args[0])
			if err != nil || distance < MinDistance || distance > MaxDistance {
				return Command{}, fmt.Errorf("%w: distance %q not in [%d, %d]", ErrBadArgument, args[0], MinDistance, MaxDistance)
			}
			return Move(Direction(verb), distance), nil
		default:
			return Command{}, fmt.Errorf("%w: %s takes one distance", ErrBadArgument, verb)
		}

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
}
