package reminder

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a single ASCII instruction for the bottle. It is written to the
// characteristic as-is, without framing.
type Command string

const (
	CommandStart Command = "START"
	CommandStop  Command = "STOP"

	setPrefix = "SET:"
)

// SetCommand builds SET:<seconds>.
func SetCommand(seconds int) Command {
	return Command(setPrefix + strconv.Itoa(seconds))
}

// Bytes returns the wire payload.
func (c Command) Bytes() []byte { return []byte(c) }

func (c Command) String() string { return string(c) }

// Name is the command without its argument, used as a metrics label.
func (c Command) Name() string {
	if strings.HasPrefix(string(c), setPrefix) {
		return "SET"
	}
	return string(c)
}

// ParseCommand decodes a payload received by a device. It returns the
// command and, for SET, its seconds argument.
func ParseCommand(payload []byte) (Command, int, error) {
	s := strings.TrimSpace(string(payload))
	switch {
	case s == string(CommandStart):
		return CommandStart, 0, nil
	case s == string(CommandStop):
		return CommandStop, 0, nil
	case strings.HasPrefix(s, setPrefix):
		secs, err := strconv.Atoi(strings.TrimPrefix(s, setPrefix))
		if err != nil || secs <= 0 {
			return "", 0, fmt.Errorf("%w: bad SET argument in %q", ErrInvalidArgument, s)
		}
		return SetCommand(secs), secs, nil
	}
	return "", 0, fmt.Errorf("%w: unknown command %q", ErrInvalidArgument, s)
}
