package hw

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicBase is the default MQTT topic prefix for the bridged protocol.
const DefaultTopicBase = "homewatch"

// Client to server commands.
const (
	CmdPong        = "PONG"
	CmdPause       = "PAUS"
	CmdPlay        = "PLAY"
	CmdReplay      = "RPLY"
	CmdRewind      = "RWND"
	CmdForward     = "FFWD"
	CmdSubsLater   = "SLAT"
	CmdSubsEarlier = "SEAR"
	CmdSubsReset   = "SRST"
	CmdStop        = "STOP"
	CmdVolume      = "VOLU"
	CmdAspectRatio = "ASPR"
	CmdAudioSource = "ASRC"
	CmdSubsSource  = "SSRC"
	CmdSeek        = "SEEK"
	CmdPrev        = "PREV"
	CmdNext        = "NEXT"
	CmdAutoplay    = "AUTO"
	CmdShuffle     = "SHUF"
	CmdCloseOnEnd  = "CLOS"
	CmdSleep       = "SLEE"
	CmdJump        = "JUMP"
	CmdMediaPath   = "MEDI"
	CmdWeb         = "WEB"
)

// Server to client broadcasts.
const (
	MsgTime      = "TIME"
	MsgMediaPath = "MPTH"
	MsgState     = "MSTT"
	MsgSubsDelay = "SDEL"
	MsgQueue     = "QUEU"
	MsgShutdown  = "SHUT"
)

// None is sent in place of an absent value.
const None = "None"

// Shutdown reasons carried by MsgShutdown.
const (
	ShutdownRequest = "request"
	ShutdownSleep   = "sleep"
	ShutdownEnd     = "end"
	ShutdownRestart = "restart"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingArg     = errors.New("missing argument")
)

var commandArity = map[string]int{
	CmdPong:        0,
	CmdPause:       0,
	CmdPlay:        0,
	CmdReplay:      0,
	CmdRewind:      0,
	CmdForward:     0,
	CmdSubsLater:   0,
	CmdSubsEarlier: 0,
	CmdSubsReset:   0,
	CmdStop:        0,
	CmdVolume:      1,
	CmdAspectRatio: 1,
	CmdAudioSource: 1,
	CmdSubsSource:  1,
	CmdSeek:        1,
	CmdPrev:        0,
	CmdNext:        0,
	CmdAutoplay:    1,
	CmdShuffle:     1,
	CmdCloseOnEnd:  1,
	CmdSleep:       1,
	CmdJump:        1,
	CmdMediaPath:   0,
	CmdWeb:         1,
}

// Command is one parsed inbound message.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a "COMMAND arg..." message. Arguments are split on single
// spaces so an empty argument ("ASPR ") is preserved.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return Command{}, ErrEmptyCommand
	}
	parts := strings.Split(text, " ")
	cmd := Command{Name: parts[0], Args: parts[1:]}
	arity, ok := commandArity[cmd.Name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	if len(cmd.Args) < arity {
		return Command{}, fmt.Errorf("%s: %w", cmd.Name, ErrMissingArg)
	}
	return cmd, nil
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// IntArg parses the i-th argument as an integer.
func (c Command) IntArg(i int) (int64, error) {
	raw := strings.TrimSpace(c.Arg(i))
	if raw == "" {
		return 0, fmt.Errorf("%s: %w", c.Name, ErrMissingArg)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", c.Name, raw)
	}
	return v, nil
}

// OptionalIntArg parses the i-th argument; an empty argument reports ok=false.
func (c Command) OptionalIntArg(i int) (int, bool, error) {
	if strings.TrimSpace(c.Arg(i)) == "" {
		return 0, false, nil
	}
	v, err := c.IntArg(i)
	if err != nil {
		return 0, false, err
	}
	return int(v), true, nil
}

// BoolArg parses a 0/1 flag argument.
func (c Command) BoolArg(i int) (bool, error) {
	v, err := c.IntArg(i)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// TimeMessage formats a playback time broadcast.
func TimeMessage(ms int64) string {
	return fmt.Sprintf("%s %d", MsgTime, ms)
}

// MediaPathMessage formats a media path broadcast; an empty path is sent as None.
func MediaPathMessage(path string) string {
	if path == "" {
		path = None
	}
	return MsgMediaPath + " " + path
}

// StateMessage formats an engine state broadcast.
func StateMessage(state int, ok bool) string {
	if !ok {
		return MsgState + " " + None
	}
	return fmt.Sprintf("%s %d", MsgState, state)
}

// SubsDelayMessage formats a subtitle delay broadcast.
func SubsDelayMessage(ms int64) string {
	return fmt.Sprintf("%s %d", MsgSubsDelay, ms)
}

// ShutdownMessage formats the session close notification.
func ShutdownMessage(reason string) string {
	return MsgShutdown + " " + reason
}

// CommandTopic is where bridged clients publish commands.
func CommandTopic(base string) string {
	return fmt.Sprintf("%s/session/cmd", base)
}

// EventTopic carries every broadcast message.
func EventTopic(base string) string {
	return fmt.Sprintf("%s/session/events", base)
}

// StatusTopic carries the retained session status document.
func StatusTopic(base string) string {
	return fmt.Sprintf("%s/session/status", base)
}
