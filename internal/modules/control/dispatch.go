package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/pkg/hw"
)

var (
	ErrBadArgument   = errors.New("bad argument")
	ErrOutOfRange    = errors.New("position out of range")
	ErrWebNotEnabled = errors.New("web player not enabled")
)

// Dispatch runs one inbound protocol message from source. Failures are logged
// and returned; they never affect the session.
func (h *Hub) Dispatch(source string, text string) error {
	cmd, err := hw.ParseCommand(text)
	if err == nil {
		err = h.execute(cmd)
	}
	if err != nil {
		h.log.Warn("protocol error", zap.String("sink", source), zap.String("message", text), zap.Error(err))
		return err
	}
	if cmd.Name != hw.CmdPong {
		h.log.Debug("command", zap.String("sink", source), zap.String("message", text))
	}
	return nil
}

func (h *Hub) execute(cmd hw.Command) error {
	th := h.theater
	switch cmd.Name {
	case hw.CmdPong:
	case hw.CmdPause:
		th.TogglePause()
	case hw.CmdPlay:
		th.Play()
	case hw.CmdReplay:
		th.Replay()
	case hw.CmdRewind:
		th.Rewind()
	case hw.CmdForward:
		th.FastForward()
	case hw.CmdSubsLater:
		th.SubsLater()
	case hw.CmdSubsEarlier:
		th.SubsEarlier()
	case hw.CmdSubsReset:
		th.SubsReset()
	case hw.CmdStop:
		th.Stop()
	case hw.CmdVolume:
		v, err := cmd.IntArg(0)
		if err != nil {
			return err
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("%s: volume %d: %w", cmd.Name, v, ErrBadArgument)
		}
		th.SetVolume(int(v))
	case hw.CmdAspectRatio:
		ratio := cmd.Arg(0)
		if ratio != "" && !validRatio(ratio) {
			return fmt.Errorf("%s: ratio %q: %w", cmd.Name, ratio, ErrBadArgument)
		}
		th.SetAspectRatio(ratio)
	case hw.CmdAudioSource, hw.CmdSubsSource:
		index, ok, err := cmd.OptionalIntArg(0)
		if err != nil {
			return err
		}
		if cmd.Name == hw.CmdAudioSource {
			th.SelectAudio(index, ok)
		} else {
			th.SelectSubtitle(index, ok)
		}
	case hw.CmdSeek:
		ms, err := cmd.IntArg(0)
		if err != nil {
			return err
		}
		th.Seek(ms)
	case hw.CmdPrev:
		th.Navigate(false)
	case hw.CmdNext:
		th.Navigate(true)
	case hw.CmdJump:
		pos, err := cmd.IntArg(0)
		if err != nil {
			return err
		}
		if !th.Jump(int(pos)) {
			return fmt.Errorf("%s %d: %w", cmd.Name, pos, ErrOutOfRange)
		}
	case hw.CmdAutoplay:
		on, err := cmd.BoolArg(0)
		if err != nil {
			return err
		}
		th.SetAutoplay(on)
	case hw.CmdShuffle:
		on, err := cmd.BoolArg(0)
		if err != nil {
			return err
		}
		th.SetShuffle(on)
	case hw.CmdCloseOnEnd:
		on, err := cmd.BoolArg(0)
		if err != nil {
			return err
		}
		h.SetCloseOnEnd(on)
	case hw.CmdSleep:
		at, err := cmd.IntArg(0)
		if err != nil {
			return err
		}
		if at < 0 {
			return fmt.Errorf("%s: deadline %d: %w", cmd.Name, at, ErrBadArgument)
		}
		h.SetSleepAt(at)
	case hw.CmdMediaPath:
		h.Broadcast(hw.MediaPathMessage(th.MediaPath()))
	case hw.CmdWeb:
		return fmt.Errorf("%s %s: %w", cmd.Name, cmd.Arg(0), ErrWebNotEnabled)
	default:
		return fmt.Errorf("%w: %q", hw.ErrUnknownCommand, cmd.Name)
	}
	return nil
}

// validRatio accepts "W:H" with positive numeric sides.
func validRatio(ratio string) bool {
	w, hgt, ok := strings.Cut(ratio, ":")
	if !ok {
		return false
	}
	for _, side := range []string{w, hgt} {
		v, err := strconv.ParseFloat(side, 64)
		if err != nil || v <= 0 {
			return false
		}
	}
	return true
}
